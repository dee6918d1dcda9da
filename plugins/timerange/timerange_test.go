package timerange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bawdo/oql/plugins"
)

var _ plugins.Transformer = (*TimeRange)(nil)

func TestDefaultColumnTimestamp(t *testing.T) {
	t.Parallel()
	got, err := New().TransformQuery("FROM apache_logs\n|> LIMIT 10")
	require.NoError(t, err)
	assert.Equal(t, "FROM apache_logs\n|> LIMIT 10\n|> WHERE timestamp >= $start AND timestamp <= $end", got)
}

func TestCustomColumnName(t *testing.T) {
	t.Parallel()
	got, err := New(WithColumn("event_time")).TransformQuery("FROM t")
	require.NoError(t, err)
	assert.Equal(t, "FROM t\n|> WHERE event_time >= $start AND event_time <= $end", got)
}

func TestQueryWithPlaceholderIsUnchanged(t *testing.T) {
	t.Parallel()
	in := "FROM t\n|> WHERE ts BETWEEN $start AND $end"
	got, err := New().TransformQuery(in)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestWithTablesRestrictsScope(t *testing.T) {
	t.Parallel()
	tr := New(WithTables("apache_logs"))

	got, err := tr.TransformQuery("FROM linux_logs")
	require.NoError(t, err)
	assert.Equal(t, "FROM linux_logs", got)

	got, err = tr.TransformQuery("FROM apache_logs")
	require.NoError(t, err)
	assert.Contains(t, got, "|> WHERE timestamp >= $start")

	got, err = tr.TransformQuery("SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)
}

func TestPerTableColumns(t *testing.T) {
	t.Parallel()
	tr := New(
		WithTableColumn("device_logs", "epoch_time"),
		WithTableColumn("kibana_sample_data_logs", "utc_time"),
	)

	got, err := tr.TransformQuery("FROM device_logs")
	require.NoError(t, err)
	assert.Equal(t, "FROM device_logs\n|> WHERE epoch_time >= $start AND epoch_time <= $end", got)

	got, err = tr.TransformQuery("FROM kibana_sample_data_logs")
	require.NoError(t, err)
	assert.Contains(t, got, "utc_time >= $start")

	got, err = tr.TransformQuery("FROM apache_logs")
	require.NoError(t, err)
	assert.Equal(t, "FROM apache_logs", got)
}

func TestInvalidColumnRejected(t *testing.T) {
	t.Parallel()
	in := "FROM t"
	got, err := New(WithColumn("ts; DROP TABLE t")).TransformQuery(in)
	require.Error(t, err)
	assert.Equal(t, in, got)
}

func TestAppliesToAllWithoutRestriction(t *testing.T) {
	t.Parallel()
	got, err := New().TransformQuery("SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1\n|> WHERE timestamp >= $start AND timestamp <= $end", got)
}
