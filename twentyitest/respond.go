package twentyitest

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) error {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}

// RespondError writes a 20i style error envelope:
// {"error": {"message": msg}}.
func RespondError(w http.ResponseWriter, statusCode int, msg string) error {
	return RespondJSON(w, statusCode, map[string]any{
		"error": map[string]string{"message": msg},
	})
}
