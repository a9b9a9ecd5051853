package instrument

import "context"

// Remote is the vendor remote-control surface of the plate reader.
// Every call returns the raw device result code; zero means success.
// A non-nil error reports a transport failure, not a device result.
type Remote interface {
	OpenConnection(ctx context.Context, endpoint string) (int, error)
	CloseConnection(ctx context.Context) (int, error)

	// ExecuteAndWait sends the command name followed by its positional
	// arguments and blocks until the device reports completion.
	ExecuteAndWait(ctx context.Context, elements []any) (int, error)

	// GetInfo reads a named info field ("Status", "Error"). The value is
	// whatever the device returns and is not guaranteed to be a string.
	GetInfo(ctx context.Context, item string) (any, error)

	GetVersion(ctx context.Context) (string, error)
}
