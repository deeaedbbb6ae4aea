package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/errors"
)

func validSettings() *Settings {
	return &Settings{
		Database:  DatabaseSettings{Driver: DriverSQLite, Path: "trialbase.db"},
		WebServer: WebServerSettings{Listen: ":8080", BodyLimit: "2M"},
		Blob:      BlobSettings{Driver: BlobDriverFS, FSRoot: "data", PresignExpiry: time.Minute},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()
	t.Attr("component", "conf")
	t.Attr("type", "unit")

	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"valid", func(*Settings) {}, ""},
		{"unknown driver", func(s *Settings) { s.Database.Driver = "oracle" }, "database.driver"},
		{"mysql without host", func(s *Settings) { s.Database.Driver = DriverMySQL }, "database.mysql"},
		{"mysql with dsn", func(s *Settings) { s.Database.Driver = DriverMySQL; s.Database.DSN = "u:p@tcp(h)/d" }, ""},
		{"postgres without dsn", func(s *Settings) { s.Database.Driver = DriverPostgres }, "database.dsn"},
		{"empty listen", func(s *Settings) { s.WebServer.Listen = "" }, "webserver.listen"},
		{"bad body limit", func(s *Settings) { s.WebServer.BodyLimit = "lots" }, "webserver.bodylimit"},
		{"negative rate", func(s *Settings) { s.WebServer.RateLimit = -1 }, "webserver.ratelimit"},
		{"s3 without bucket", func(s *Settings) { s.Blob.Driver = BlobDriverS3 }, "blob.s3.bucket"},
		{"zero presign", func(s *Settings) { s.Blob.PresignExpiry = 0 }, "blob.presignexpiry"},
		{"mqtt without broker", func(s *Settings) { s.MQTT.Enabled = true }, "mqtt.broker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.field, errors.FieldOf(err))
		})
	}
}
