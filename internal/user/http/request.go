package http

import (
	"encoding/json"
	"net/http"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
