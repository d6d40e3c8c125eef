package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-lake/pkg/crypto"
	"github.com/ekaya-inc/ekaya-lake/pkg/models"
)

// datasourcesFile is the on-disk layout:
//
//	datasources:
//	  - name: lake
//	    type: s3
//	    config:
//	      host: localhost
//	      port: 9000
//	      user: minio
//	      password: enc:...
//	      options:
//	        bucket: lake
type datasourcesFile struct {
	Datasources []datasourceEntry `yaml:"datasources"`
}

type datasourceEntry struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Description string         `yaml:"description"`
	Config      map[string]any `yaml:"config"`
}

// Keys whose values name a host or endpoint reachable from the process.
var hostKeys = map[string]bool{"host": true}
var endpointKeys = map[string]bool{"endpoint": true, "account_url": true}

// LoadDatasources reads the datasources file and decrypts enc: values.
// enc may be nil when the file holds no encrypted values.
func LoadDatasources(path string, enc *crypto.CredentialEncryptor) ([]*models.Datasource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datasources file: %w", err)
	}
	return ParseDatasources(data, enc)
}

// ParseDatasources decodes a datasources document.
func ParseDatasources(data []byte, enc *crypto.CredentialEncryptor) ([]*models.Datasource, error) {
	var file datasourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse datasources file: %w", err)
	}

	seen := make(map[string]bool, len(file.Datasources))
	out := make([]*models.Datasource, 0, len(file.Datasources))
	var errs []error

	for i, entry := range file.Datasources {
		name := strings.TrimSpace(entry.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("datasource #%d: name is required", i+1))
			continue
		case seen[name]:
			errs = append(errs, fmt.Errorf("datasource %q: duplicate name", name))
			continue
		case strings.TrimSpace(entry.Type) == "":
			errs = append(errs, fmt.Errorf("datasource %q: type is required", name))
			continue
		}
		seen[name] = true

		cfg, err := resolveValues(entry.Config, enc)
		if err != nil {
			errs = append(errs, fmt.Errorf("datasource %q: %w", name, err))
			continue
		}

		out = append(out, &models.Datasource{
			ID:             models.DatasourceID(name),
			Name:           name,
			DatasourceType: strings.TrimSpace(entry.Type),
			Description:    entry.Description,
			Config:         cfg,
		})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveValues copies a config map, decrypting enc: strings and
// redirecting localhost endpoints when running in Docker.
func resolveValues(in map[string]any, enc *crypto.CredentialEncryptor) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		switch v := value.(type) {
		case string:
			s, err := resolveString(key, v, enc)
			if err != nil {
				return nil, err
			}
			out[key] = s
		case map[string]any:
			nested, err := resolveValues(v, enc)
			if err != nil {
				return nil, err
			}
			out[key] = nested
		default:
			out[key] = value
		}
	}
	return out, nil
}

func resolveString(key, value string, enc *crypto.CredentialEncryptor) (string, error) {
	if crypto.IsEncrypted(value) {
		if enc == nil {
			return "", fmt.Errorf("%s is encrypted but PROJECT_CREDENTIALS_KEY is not set", key)
		}
		plain, err := enc.DecryptValue(value)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt %s: %w", key, err)
		}
		return plain, nil
	}
	switch {
	case hostKeys[key]:
		return ResolveHostForDocker(value), nil
	case endpointKeys[key]:
		return ResolveEndpointForDocker(value), nil
	}
	return value, nil
}
