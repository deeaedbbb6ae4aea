package conf

// Database drivers.
const (
	DriverSQLite     = "sqlite"
	DriverSQLitePure = "sqlite-pure"
	DriverMySQL      = "mysql"
	DriverPostgres   = "postgres"
)

// Blob storage drivers.
const (
	BlobDriverFS     = "fs"
	BlobDriverMemory = "memory"
	BlobDriverS3     = "s3"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TRIALBASE_"
