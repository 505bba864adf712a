package constant

type EventType string

const (
	EventRecordingCreated EventType = "recording.created"
	EventRecordingDeleted EventType = "recording.deleted"
)

func (e EventType) String() string {
	return string(e)
}

type BlobBackend string

const (
	BlobBackendLocal BlobBackend = "local"
	BlobBackendMinio BlobBackend = "minio"
	BlobBackendS3    BlobBackend = "s3"
)

type DatabaseDriver string

const (
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

// UploadsPrefix is the URL namespace blobs are served under.
const UploadsPrefix = "/uploads/"
