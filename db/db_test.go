package db

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/testkit"
	"github.com/ceyewan/leaf/xerrors"
)

type note struct {
	ID   uint   `gorm:"primaryKey"`
	Body string `gorm:"size:64"`
}

func TestNew_Validate_Unit(t *testing.T) {
	_, err := New(nil, nil)
	assert.True(t, xerrors.Is(err, ErrConnectorRequired))

	conn := testkit.NewSQLiteConnector(t)
	_, err = New(conn, &Config{SlowThreshold: -time.Second})
	assert.True(t, xerrors.Is(err, ErrInvalidConfig))
}

func TestDB_Transaction_Unit(t *testing.T) {
	ctx := context.Background()
	d, err := New(testkit.NewSQLiteConnector(t), nil, WithLogger(clog.Discard()))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Driver())
	require.NoError(t, d.Ping(ctx))
	require.NoError(t, d.DB(ctx).AutoMigrate(&note{}))

	require.NoError(t, d.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&note{Body: "kept"}).Error
	}))

	boom := xerrors.New("boom")
	err = d.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(&note{Body: "rolled back"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.True(t, xerrors.Is(err, boom))

	var notes []note
	require.NoError(t, d.DB(ctx).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "kept", notes[0].Body)
}

func TestDB_Logger_Unit(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "json", Output: "stdout"}, clog.WithWriter(&buf))
	require.NoError(t, err)

	d, err := New(testkit.NewSQLiteConnector(t), &Config{LogSQL: true}, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, d.DB(ctx).AutoMigrate(&note{}))

	var n note
	err = d.DB(ctx).First(&n, 42).Error
	assert.True(t, xerrors.Is(err, gorm.ErrRecordNotFound))
	assert.NotContains(t, buf.String(), "sql error", "record not found is not logged as an error")

	require.Error(t, d.DB(ctx).Exec("SELECT * FROM missing_table").Error)
	assert.Contains(t, buf.String(), "sql error")
	assert.Contains(t, buf.String(), `"namespace":"db"`)
}

func TestDB_Tracing_Unit(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(ctx)

	d, err := New(testkit.NewSQLiteConnector(t), nil, WithTracer(tp))
	require.NoError(t, err)
	require.NoError(t, d.DB(ctx).AutoMigrate(&note{}))
	require.NoError(t, d.DB(ctx).Create(&note{Body: "x"}).Error)

	assert.NotEmpty(t, recorder.Ended())
}
