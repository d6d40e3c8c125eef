//go:build integration

package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lake/pkg/models"
	"github.com/ekaya-inc/ekaya-lake/pkg/testhelpers"
)

type orderFixture struct {
	ID         int64   `parquet:"id"`
	CustomerID int64   `parquet:"customer_id"`
	Total      float64 `parquet:"total"`
}

type eventFixture struct {
	ID   int64  `parquet:"id"`
	Kind string `parquet:"kind"`
}

func tableNames(tables []datasource.TableInfo) []string {
	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	return names
}

func TestS3Driver_MinIO(t *testing.T) {
	server := testhelpers.GetMinIO(t)
	server.CreateBucket(t, "lake")
	server.PutObject(t, "lake", "sales/orders.parquet", testhelpers.ParquetBytes(t, []orderFixture{
		{ID: 1, CustomerID: 10, Total: 9.5},
		{ID: 2, CustomerID: 20, Total: 12},
	}))
	server.PutObject(t, "lake", "sales/events/part-0001.parquet", testhelpers.ParquetBytes(t, []eventFixture{
		{ID: 1, Kind: "click"},
	}))
	server.PutObject(t, "lake", "sales/notes.txt", []byte("ignored"))

	factory := NewDatasourceAdapterFactory(testConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	driver, err := factory.NewDriver(ctx, "minio", server.DatasourceConfig("lake"), models.DatasourceID("lake"))
	require.NoError(t, err)
	defer driver.Close()

	result := driver.TestConnection(ctx)
	require.True(t, result.Success, result.Message)

	schemas, err := driver.ListSchemas(ctx, "")
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "sales", schemas[0].Name)

	tables, err := driver.ListTables(ctx, "", "sales")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orders", "events"}, tableNames(tables))

	columns, err := driver.ListColumns(ctx, "", "sales", "orders")
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, "customer_id", columns[1].Name)

	rows, err := driver.ExecuteReadOnlyQuery(ctx, "SELECT sum(total) AS total FROM orders", 10, datasource.TableManifest{
		"orders": {URI: "s3://lake/sales/orders.parquet"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, rows.RowCount)
	assert.EqualValues(t, 21.5, rows.Rows[0]["total"])
}

func TestAzureDriver_Azurite(t *testing.T) {
	server := testhelpers.GetAzurite(t)
	server.CreateContainer(t, "archive")
	server.UploadBlob(t, "archive", "top.parquet", testhelpers.ParquetBytes(t, []eventFixture{{ID: 1, Kind: "a"}}))
	server.UploadBlob(t, "archive", "sales/orders.parquet", testhelpers.ParquetBytes(t, []orderFixture{{ID: 1}}))
	server.UploadBlob(t, "archive", "sales/events/region=eu/part-0.parquet", testhelpers.ParquetBytes(t, []eventFixture{{ID: 2}}))

	factory := NewDatasourceAdapterFactory(testConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	driver, err := factory.NewDriver(ctx, "azure", server.DatasourceConfig("archive"), models.DatasourceID("archive"))
	require.NoError(t, err)
	defer driver.Close()

	result := driver.TestConnection(ctx)
	require.True(t, result.Success, result.Message)

	schemas, err := driver.ListSchemas(ctx, "")
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, datasource.RootSchema, schemas[0].Name)
	assert.Equal(t, "sales", schemas[1].Name)

	tables, err := driver.ListTables(ctx, "", "sales")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orders", "events"}, tableNames(tables))

	root, err := driver.ListTables(ctx, "", datasource.RootSchema)
	require.NoError(t, err)
	// Root-level folders holding Parquet files also surface as partitioned tables.
	assert.Equal(t, []string{"top", "sales"}, tableNames(root))
}
