package handler

import (
	"net/http"
	"strconv"
)

func queryInt(r *http.Request, name, fallback string) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		value = fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
