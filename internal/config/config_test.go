package config

import (
	"fmt"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 6, cfg.Booking.RoomMaxCapacity)
	assert.Equal(t, 24*time.Hour, cfg.Booking.StayDuration)
	assert.Equal(t, int64(300), cfg.Booking.ExtensionCost)
	assert.Equal(t, int64(1000), cfg.Booking.SignupPoints)
	assert.Equal(t, int64(50), cfg.Booking.DiaryRewardPoints)
	assert.True(t, cfg.Booking.RetireEmptyRooms)
	assert.Equal(t, 3, cfg.Worker.MaxRetries)
	assert.Equal(t, time.Second, cfg.Worker.Backoff)
	assert.Equal(t, "@every 1m", cfg.Worker.SweepSchedule)
	assert.Equal(t, "*", cfg.GetAllowedOrigins())
}

func TestFromViperModePrefix(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("APP_MODE", "prod")
	v.Set("PROD_DB_HOST", "db.internal")
	v.Set("DEV_DB_HOST", "ignored")
	v.Set("DB_DRIVER", "SQLite")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestFromViperRejectsBadValues(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("APP_MODE", "staging")
	_, err := FromViper(v)
	assert.Error(t, err)

	v = viper.New()
	setDefaults(v)
	v.Set("DB_DRIVER", "postgres")
	_, err = FromViper(v)
	assert.Error(t, err)

	v = viper.New()
	setDefaults(v)
	v.Set("ROOM_MAX_CAPACITY", 0)
	_, err = FromViper(v)
	assert.Error(t, err)
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("DB_DRIVER", "sqlite")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "8080", "--no-worker"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Worker.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestSeederIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()), nil)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	require.NoError(t, NewSeeder(db).Run())
	require.NoError(t, NewSeeder(db).Run())

	var cities, active, vehicles, guestHouses int64
	db.Model(&models.City{}).Count(&cities)
	db.Model(&models.City{}).Where("is_active = ?", true).Count(&active)
	db.Model(&models.Vehicle{}).Count(&vehicles)
	db.Model(&models.GuestHouse{}).Count(&guestHouses)

	assert.Equal(t, int64(6), cities)
	assert.Equal(t, int64(2), active)
	assert.Equal(t, int64(2), vehicles)
	assert.Equal(t, int64(2), guestHouses)

	var etheria models.City
	require.NoError(t, db.Where("name = ?", "에테리아").First(&etheria).Error)
	assert.False(t, etheria.IsActive)
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(DatabaseConfig{Host: "db", Port: "3306", User: "bzero", Password: "p@ss:word", DBName: "bzero"})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "bzero", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "bzero", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
	assert.Equal(t, "utf8mb4", parsed.Params["charset"])
}
