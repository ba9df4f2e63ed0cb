package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/systmms/dsvault/internal/config"
	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/secretstore"
)

// ExitError ends the process with Code and prints nothing.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// openStore opens the configured store without metrics.
func openStore(cfg *config.Config) (*secretstore.Store, error) {
	store, err := cfg.OpenStore(nil)
	if err != nil {
		return nil, dverrors.UserError{
			Message:    "Failed to open secret store",
			Details:    err.Error(),
			Suggestion: "Run 'dsvault init' or check --dir",
			Err:        err,
		}
	}
	return store, nil
}

// writeJSON writes v indented, followed by a newline.
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
