package datasource

import (
	"fmt"
	"strconv"
	"strings"
)

// Option keys recognised by the object-storage backends.
const (
	OptionBucket        = "bucket"
	OptionContainer     = "container"
	OptionPathPrefix    = "path_prefix"
	OptionRegion        = "region"
	OptionEndpoint      = "endpoint"
	OptionAuthMethod    = "auth_method"
	OptionAccountName   = "account_name"
	OptionAccountURL    = "account_url"
	OptionAccountKey    = "account_key"
	OptionSASToken      = "sas_token"
	OptionSessionToken  = "session_token"
	OptionURLStyle      = "url_style"
	OptionDefaultSchema = "default_schema"
)

var optionKeys = []string{
	OptionBucket, OptionContainer, OptionPathPrefix, OptionRegion, OptionEndpoint,
	OptionAuthMethod, OptionAccountName, OptionAccountURL, OptionAccountKey,
	OptionSASToken, OptionSessionToken, OptionURLStyle, OptionDefaultSchema,
}

// ConnectionParams is the backend-neutral connection input for one call.
// Username/Password carry the access key pair for S3 and the account
// name/key pair for Azure when the options do not name them explicitly.
type ConnectionParams struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
	Options  map[string]string
}

// Option returns the trimmed option value, or "" when absent.
func (p *ConnectionParams) Option(key string) string {
	if p == nil || p.Options == nil {
		return ""
	}
	return strings.TrimSpace(p.Options[key])
}

// ParamsFromMap creates ConnectionParams from a generic config map.
// Option keys may appear either under "options" or at the top level; nested
// values win. SSL defaults to true.
func ParamsFromMap(config map[string]any) (*ConnectionParams, error) {
	p := &ConnectionParams{SSL: true, Options: map[string]string{}}

	if host, ok := config["host"].(string); ok {
		p.Host = strings.TrimSpace(host)
	}

	switch port := config["port"].(type) {
	case float64: // JSON numbers are float64
		p.Port = int(port)
	case int:
		p.Port = port
	case string:
		if port != "" {
			n, err := strconv.Atoi(port)
			if err != nil {
				return nil, fmt.Errorf("invalid port %q: %w", port, err)
			}
			p.Port = n
		}
	}

	if user, ok := config["user"].(string); ok {
		p.Username = user
	} else if user, ok := config["username"].(string); ok {
		p.Username = user
	}
	if password, ok := config["password"].(string); ok {
		p.Password = password
	}

	if v, ok := config["ssl"]; ok {
		ssl, err := toBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ssl flag: %w", err)
		}
		p.SSL = ssl
	}

	for _, key := range optionKeys {
		if s, ok := toString(config[key]); ok {
			p.Options[key] = s
		}
	}
	if nested, ok := config["options"].(map[string]any); ok {
		for key, value := range nested {
			if s, ok := toString(value); ok {
				p.Options[key] = s
			}
		}
	} else if nested, ok := config["options"].(map[string]string); ok {
		for key, value := range nested {
			p.Options[key] = value
		}
	}

	return p, nil
}

func toString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	default:
		return "", false
	}
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	case float64:
		return val != 0, nil
	case int:
		return val != 0, nil
	default:
		return false, fmt.Errorf("unsupported type %T", v)
	}
}
