package server

import (
	"encoding/base64"
	"encoding/json"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/discovery"
)

// encodeCursor produces an opaque pagination token over (createdAt, id).
func encodeCursor(c discovery.Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(token string) (*discovery.Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperr.Validation("invalid cursor")
	}
	var c discovery.Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" {
		return nil, apperr.Validation("invalid cursor")
	}
	return &c, nil
}
