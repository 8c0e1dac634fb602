package export

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/regionmap/internal/testutil"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func testTable(hasAnalytic bool) *core.RegionTable {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{40, 44}, {41, 44}, {41, 45}, {40, 44}},
	})
	org := core.NewOrganization(core.OrganizationRecord{
		City: "Maykop", Region: "Adygeya",
		ByStaff: 100, ByList: 80, BugetLimits: 100, CashExecution: 90,
		Equipment: 50, FaultyEquipment: 5,
	})
	return core.NewRegionTable([]core.Region{
		{
			Name:         "Adygeya",
			Properties:   map[string]any{"name": "Adygeya"},
			Geometry:     poly,
			Source:       core.SourceFile{Path: "regions/Adygeya.geojson", SHA256: "abc"},
			Organization: &org,
		},
		{
			Name:       "Altai",
			Properties: map[string]any{"name": "Altai"},
			Geometry:   poly,
			Source:     core.SourceFile{Path: "regions/Altai.geojson", SHA256: "def"},
		},
	}, core.TableOptions{HasAnalytic: hasAnalytic})
}

func newMock(t *testing.T) (*Exporter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	e, err := NewWithDB(db, "", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, mock
}

func TestCreateTableSQL(t *testing.T) {
	cols := exportColumns(testTable(false))

	assert.Equal(t, []string{
		"name", "geometry_wkb", "geometry_geojson", "region", "value", "staffing", "cash_use",
		"serviceability", "properties", "source_path", "source_sha256",
	}, cols)
	assert.Equal(t,
		"CREATE OR REPLACE TABLE regions (name VARCHAR PRIMARY KEY, geometry_wkb BLOB, "+
			"geometry_geojson VARCHAR, region VARCHAR, value DOUBLE, staffing DOUBLE, cash_use DOUBLE, "+
			"serviceability DOUBLE, properties VARCHAR, source_path VARCHAR, source_sha256 VARCHAR)",
		CreateTableSQL("regions", cols))
	assert.Equal(t, "INSERT INTO t (a, b, c) VALUES (?, ?, ?)", InsertSQL("t", []string{"a", "b", "c"}))

	withAnalytic := exportColumns(testTable(true))
	assert.Contains(t, withAnalytic, core.ColAnalyticValue)
	assert.Contains(t, CreateTableSQL("regions", withAnalytic), "analytic_value DOUBLE")
	assert.Contains(t, CreateTableSQL("regions", withAnalytic), "details VARCHAR")
}

func TestExporter_Write(t *testing.T) {
	e, mock := newMock(t)
	table := testTable(false)
	cols := exportColumns(table)

	mock.ExpectBegin()
	mock.ExpectExec(CreateTableSQL("regions", cols)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(InsertSQL("regions", cols)).
		WithArgs("Adygeya", sqlmock.AnyArg(), sqlmock.AnyArg(), "Adygeya", 0.8, 0.8, 0.9, 0.9,
			`{"name":"Adygeya"}`, "regions/Adygeya.geojson", "abc").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(InsertSQL("regions", cols)).
		WithArgs("Altai", sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil, nil, nil, nil,
			`{"name":"Altai"}`, "regions/Altai.geojson", "def").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := e.Write(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExporter_WriteRollsBackOnError(t *testing.T) {
	e, mock := newMock(t)
	table := testTable(false)
	cols := exportColumns(table)

	mock.ExpectBegin()
	mock.ExpectExec(CreateTableSQL("regions", cols)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(InsertSQL("regions", cols)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := e.Write(context.Background(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert region Adygeya")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowArgs_GeometryEncodings(t *testing.T) {
	r := testTable(false).At(0)
	args, err := rowArgs(r, []string{colGeometryWKB, colGeometryGeoJSON})
	require.NoError(t, err)

	g, err := wkb.Unmarshal(args[0].([]byte))
	require.NoError(t, err)
	assert.Equal(t, r.Geometry.FlatCoords(), g.FlatCoords())
	assert.Contains(t, args[1].(string), `"type":"Polygon"`)

	want, err := wkb.Marshal(r.Geometry, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, want, args[0])
}

func TestNewWithDB_InvalidTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewWithDB(db, "regions; DROP TABLE x", nil)
	assert.Error(t, err)
}
