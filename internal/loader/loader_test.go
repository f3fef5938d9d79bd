package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/loader"
	pcsv "github.com/debastene/f1-psda-dashboard/internal/parser/csv"
	"github.com/debastene/f1-psda-dashboard/internal/quality"
	"github.com/debastene/f1-psda-dashboard/internal/storage/sqlite"
)

// fixture is a minimal Ergast-shaped extract. drivers.csv carries a Latin-1
// encoded "é" (0xE9).
var fixture = map[string]string{
	"results.csv": "resultId,raceId,driverId,constructorId,number,grid,position,positionOrder,points,statusId\n" +
		"1,18,1,1,22,1,1,1,10,1\n" +
		"2,18,2,2,3,5,\\N,2,8,11\n",
	"drivers.csv": "driverId,driverRef,forename,surname,nationality\n" +
		"1,hamilton,Lewis,Hamilton,British\n" +
		"2,perez,Sergio,P\xe9rez,Mexican\n",
	"races.csv": "raceId,year,round,name\n" +
		"18,2008,1,Australian Grand Prix\n",
	"status.csv": "statusId,status\n" +
		"1,Finished\n" +
		"11,+1 Lap\n",
	"constructors.csv": "constructorId,constructorRef,name,nationality\n" +
		"1,mclaren,McLaren,British\n" +
		"2,sauber,Sauber,Swiss\n",
}

func writeFixture(t *testing.T, override map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixture {
		if o, ok := override[name]; ok {
			body = o
		}
		if body == "" {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func dirConfig(dir string) config.Pipeline {
	p := config.Default()
	p.Source.Dir.Path = dir
	return p
}

func newLoader(t *testing.T, p config.Pipeline, opt loader.Options) loader.Loader {
	t.Helper()
	l, err := loader.New(context.Background(), p, opt)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestDirLoader_LoadsAllRelations(t *testing.T) {
	t.Parallel()
	dir := writeFixture(t, nil)
	l := newLoader(t, dirConfig(dir), loader.Options{Job: "test"})

	raw, err := l.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, raw.Validate())

	assert.Equal(t, 2, raw.Results.Len())
	assert.Equal(t, 2, raw.Drivers.Len())
	assert.Equal(t, 1, raw.Races.Len())

	surname := raw.Drivers.Col("surname")
	assert.Equal(t, "Pérez", raw.Drivers.Rows[1][surname], "Latin-1 must be decoded")

	// The loader does not interpret the sentinel; the cleaner does.
	pos := raw.Results.Col("position")
	assert.Equal(t, `\N`, raw.Results.Rows[1][pos])
}

func TestDirLoader_MissingFileIsSourceUnavailable(t *testing.T) {
	t.Parallel()
	dir := writeFixture(t, map[string]string{"status.csv": ""})
	l := newLoader(t, dirConfig(dir), loader.Options{})

	raw, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, raw, "no partial result")

	var su *loader.SourceUnavailable
	require.True(t, errors.As(err, &su), "got %T", err)
	assert.Equal(t, "status", su.Relation)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDirLoader_MissingColumnIsSourceUnavailable(t *testing.T) {
	t.Parallel()
	dir := writeFixture(t, map[string]string{
		"races.csv": "raceId,round,name\n18,1,Australian Grand Prix\n",
	})
	l := newLoader(t, dirConfig(dir), loader.Options{})

	_, err := l.Load(context.Background())
	var su *loader.SourceUnavailable
	require.True(t, errors.As(err, &su), "got %v", err)
	assert.Equal(t, "races", su.Relation)
	assert.Contains(t, err.Error(), "year")
}

func TestDirLoader_MalformedRowIsSourceUnavailable(t *testing.T) {
	t.Parallel()
	dir := writeFixture(t, map[string]string{
		"results.csv": "resultId,raceId,driverId,constructorId,number,grid,position,positionOrder,points,statusId\n" +
			"1,18,1,1,22,1,1,1,10,1\n" +
			"2,18,2,2,3,5,\\N,2,8,11,extra\n",
	})
	rec := quality.NewRecorder("test", nil)
	l := newLoader(t, dirConfig(dir), loader.Options{Quality: rec})

	raw, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, raw, "no partial result")

	var su *loader.SourceUnavailable
	require.True(t, errors.As(err, &su), "got %T", err)
	assert.Equal(t, "results", su.Relation)
	assert.True(t, errors.Is(err, pcsv.ErrMalformedRow))
	assert.Contains(t, err.Error(), "line 3")
	assert.Zero(t, rec.Count(quality.SkippedRow))
}

func TestDirLoader_SkippedRowsAreQualityEvents(t *testing.T) {
	t.Parallel()
	dir := writeFixture(t, map[string]string{
		"status.csv": "statusId,status\n1,Finished\n2,Disqualified,extra\n11,+1 Lap\n",
	})
	p := dirConfig(dir)
	p.Parser.Options["skip_bad_rows"] = true
	rec := quality.NewRecorder("test", nil)
	l := newLoader(t, p, loader.Options{Quality: rec})

	raw, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Status.Len())
	assert.Equal(t, 1, rec.Count(quality.SkippedRow))
}

func TestDirLoader_TableOverride(t *testing.T) {
	t.Parallel()
	dir := writeFixture(t, nil)
	require.NoError(t, os.Rename(filepath.Join(dir, "status.csv"), filepath.Join(dir, "status_codes.csv")))

	p := dirConfig(dir)
	p.Source.Tables = map[string]string{"status": "status_codes"}
	l := newLoader(t, p, loader.Options{})

	raw, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Status.Len())
}

func TestDirLoader_Fingerprint(t *testing.T) {
	t.Parallel()
	dir := writeFixture(t, nil)
	l := newLoader(t, dirConfig(dir), loader.Options{})
	ctx := context.Background()

	a, err := l.Fingerprint(ctx)
	require.NoError(t, err)
	b, err := l.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "races.csv"),
		[]byte("raceId,year,round,name\n18,2009,1,Australian Grand Prix\n"), 0o644))
	c, err := l.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHTTPLoader(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := fixture[strings.TrimPrefix(r.URL.Path, "/ergast/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	p := config.Default()
	p.Source.Kind = config.SourceHTTP
	p.Source.HTTP.BaseURL = srv.URL + "/ergast"
	p.Source.HTTP.MaxRetries = 0
	l := newLoader(t, p, loader.Options{})

	raw, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Constructors.Len())

	fp, err := l.Fingerprint(context.Background())
	require.NoError(t, err)
	assert.Len(t, fp, 32)
}

func TestHTTPLoader_FingerprintWhenHEADRejected(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	races := fixture["races.csv"]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/")
		mu.Lock()
		body, ok := fixture[name]
		if name == "races.csv" {
			body = races
		}
		mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	p := config.Default()
	p.Source.Kind = config.SourceHTTP
	p.Source.HTTP.BaseURL = srv.URL
	p.Source.HTTP.MaxRetries = 0
	l := newLoader(t, p, loader.Options{})
	ctx := context.Background()

	a, err := l.Fingerprint(ctx)
	require.NoError(t, err)

	mu.Lock()
	races = "raceId,year,round,name\n18,2009,1,Australian Grand Prix\n"
	mu.Unlock()
	b, err := l.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "content hash must follow the body")
}

func TestHTTPLoader_NotFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := config.Default()
	p.Source.Kind = config.SourceHTTP
	p.Source.HTTP.BaseURL = srv.URL
	l := newLoader(t, p, loader.Options{})

	_, err := l.Load(context.Background())
	var su *loader.SourceUnavailable
	require.True(t, errors.As(err, &su), "got %v", err)
}

func seedSQLite(t *testing.T, dsn string) {
	t.Helper()
	ctx := context.Background()
	repo, closeFn, err := sqlite.NewRepository(ctx, sqlite.Config{DSN: dsn})
	require.NoError(t, err)
	defer closeFn()

	// Lower-case column names, as in some SQL ports of the dump.
	for _, stmt := range []string{
		`CREATE TABLE results (resultid INTEGER, raceid INTEGER, driverid INTEGER, constructorid INTEGER, grid INTEGER, positionorder INTEGER, points REAL, statusid INTEGER)`,
		`INSERT INTO results VALUES (1, 18, 1, 1, 1, 1, 10, 1), (2, 18, 2, 2, NULL, 2, 8, 11)`,
		`CREATE TABLE drivers (driverid INTEGER, forename TEXT, surname TEXT, nationality TEXT)`,
		`INSERT INTO drivers VALUES (1, 'Lewis', 'Hamilton', 'British'), (2, 'Sergio', 'Pérez', 'Mexican')`,
		`CREATE TABLE races (raceid INTEGER, year INTEGER, name TEXT)`,
		`INSERT INTO races VALUES (18, 2008, 'Australian Grand Prix')`,
		`CREATE TABLE status (statusid INTEGER, status TEXT)`,
		`INSERT INTO status VALUES (1, 'Finished'), (11, '+1 Lap')`,
		`CREATE TABLE constructors (constructorid INTEGER, name TEXT)`,
		`INSERT INTO constructors VALUES (1, 'McLaren'), (2, 'Sauber')`,
	} {
		require.NoError(t, repo.Exec(ctx, stmt), stmt)
	}
}

func TestSQLiteLoader(t *testing.T) {
	t.Parallel()
	dsn := filepath.Join(t.TempDir(), "f1db.sqlite")
	seedSQLite(t, dsn)

	p := config.Default()
	p.Source.Kind = config.SourceSQLite
	p.Source.DB.DSN = dsn
	l := newLoader(t, p, loader.Options{})
	ctx := context.Background()

	raw, err := l.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, raw.Validate())

	grid := raw.Results.Col("grid")
	assert.Nil(t, raw.Results.Rows[1][grid], "SQL NULL stays null")
	assert.Equal(t, "10", raw.Results.Rows[0][raw.Results.Col("points")])
	assert.True(t, raw.Results.Has("positionOrder"), "columns conformed to canonical case")

	a, err := l.Fingerprint(ctx)
	require.NoError(t, err)
	b, err := l.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSQLiteLoader_FingerprintSeesInPlaceUpdate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "f1db.sqlite")
	seedSQLite(t, path)

	p := config.Default()
	p.Source.Kind = config.SourceSQLite
	p.Source.DB.DSN = "file:" + path + "?_pragma=busy_timeout(5000)"
	l := newLoader(t, p, loader.Options{})
	ctx := context.Background()

	before, err := l.Fingerprint(ctx)
	require.NoError(t, err)

	// Same row count and same maximum key in every table.
	repo, closeFn, err := sqlite.NewRepository(ctx, sqlite.Config{DSN: path})
	require.NoError(t, err)
	require.NoError(t, repo.Exec(ctx, `UPDATE results SET points = 25 WHERE resultid = 1`))
	closeFn()
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	after, err := l.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestSQLiteLoader_MissingTable(t *testing.T) {
	t.Parallel()
	dsn := filepath.Join(t.TempDir(), "empty.sqlite")

	p := config.Default()
	p.Source.Kind = config.SourceSQLite
	p.Source.DB.DSN = dsn
	l := newLoader(t, p, loader.Options{})

	_, err := l.Load(context.Background())
	var su *loader.SourceUnavailable
	require.True(t, errors.As(err, &su), "got %v", err)
}

func TestNew_UnknownKind(t *testing.T) {
	p := config.Default()
	p.Source.Kind = "ftp"
	_, err := loader.New(context.Background(), p, loader.Options{})
	require.Error(t, err)
}
