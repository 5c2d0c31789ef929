package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"vibeu/internal/config"
	"vibeu/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestNowFunc_UTCMicrosecond(t *testing.T) {
	now := NowFunc()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%1000)
}

func TestPersistentModels_AutoMigrate(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	for _, table := range []string{"profiles", "posts", "likes", "comments", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestLikePrimaryKeyRejectsDuplicates(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	require.NoError(t, db.Create(&models.Like{PostID: "p1", UserID: "u1"}).Error)
	err := db.Create(&models.Like{PostID: "p1", UserID: "u1"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		mode        string
		destructive bool
		want        SchemaPlan
		wantErr     bool
	}{
		{name: "hybrid dev", env: "development", want: SchemaPlan{Mode: "hybrid", RunSQL: true, RunAutoMigrate: true}},
		{name: "hybrid prod", env: "production", mode: "hybrid", want: SchemaPlan{Mode: "hybrid", RunSQL: true}},
		{name: "sql only", env: "development", mode: " SQL ", want: SchemaPlan{Mode: "sql", RunSQL: true}},
		{name: "auto dev", env: "development", mode: "auto", want: SchemaPlan{Mode: "auto", RunAutoMigrate: true}},
		{name: "auto prod refused", env: "production", mode: "auto", wantErr: true},
		{name: "auto staging forced", env: "staging", mode: "auto", destructive: true, want: SchemaPlan{Mode: "auto", RunAutoMigrate: true, Forced: true}},
		{name: "unknown mode", env: "development", mode: "yolo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Env: tt.env, DBSchemaMode: tt.mode, DBAutoMigrateAllowDestructive: tt.destructive}
			plan, err := PlanSchema(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want.Environment = tt.env
			assert.Equal(t, tt.want, plan)
		})
	}
}

func TestSchemaPlan_ApplyAndPending(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	plan := SchemaPlan{Mode: SchemaModeAuto, RunAutoMigrate: true}
	applied, pending, err := plan.Pending(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, applied)
	assert.Nil(t, pending, "plans without SQL report nothing")

	require.NoError(t, plan.Apply(ctx, db))
	assert.True(t, db.Migrator().HasTable(&models.Notification{}))
}

func TestGetMigrations_EmbeddedInitPresent(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "init_social", ms[0].Name)
	assert.Contains(t, ms[0].UpScript, "PRIMARY KEY (post_id, user_id)")
	assert.Contains(t, ms[0].UpScript, "actor_id <> recipient_id")
	assert.Equal(t, "000001_init_social", ms[0].String())
}

func TestLoadMigrations_Validation(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"m/bad.up.sql": {Data: []byte("SELECT 1;")},
	}, "m")
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"m/000001_a.up.sql": {Data: []byte("SELECT 1;")},
	}, "m")
	assert.Error(t, err, "missing down script")

	ms, err := LoadMigrations(fstest.MapFS{
		"m/000002_b.up.sql":   {Data: []byte("SELECT 2;")},
		"m/000002_b.down.sql": {Data: []byte("SELECT 2;")},
		"m/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
	}, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, 2, ms[1].Version)
}

func TestRunMigrations_AppliesOnceAndRollsBack(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	set, err := LoadMigrations(fstest.MapFS{
		"m/000001_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"m/000001_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
	}, "m")
	require.NoError(t, err)

	require.NoError(t, runMigrations(ctx, db, set))
	require.NoError(t, runMigrations(ctx, db, set))
	assert.True(t, db.Migrator().HasTable("widgets"))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	require.NoError(t, NewMigrationStore(db).RevertMigration(ctx, set[0]))
	assert.False(t, db.Migrator().HasTable("widgets"))
}

func TestRunMigrations_FailedScriptLeavesNoLog(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	set := []Migration{{Version: 1, Name: "broken", UpScript: "CREATE TABLE (;", DownScript: ""}}
	assert.Error(t, runMigrations(ctx, db, set))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestValidateAppliedVersions_UnknownVersion(t *testing.T) {
	err := validateAppliedVersions([]int{1, 7}, []Migration{{Version: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}
