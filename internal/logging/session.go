package logging

import (
	"io"
	"log/slog"
)

// SessionLogger returns a logger that writes to base and also to a JSON file
// at path dedicated to one capture session. Records in the file always carry
// the session id, even when the caller never attached one. Close the returned
// closer once the session ends.
func SessionLogger(base *slog.Logger, sessionID, path string) (*slog.Logger, io.Closer, error) {
	file, err := OpenLogFile(path)
	if err != nil {
		return nil, nil, err
	}
	fileHandler := newJSONHandler(file, slog.LevelDebug, false).
		WithAttrs([]slog.Attr{slog.String(FieldSessionID, sessionID)})
	if base == nil {
		return slog.New(fileHandler), file, nil
	}
	return slog.New(slog.NewMultiHandler(base.Handler(), fileHandler)), file, nil
}
