package helper

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/google/uuid"
)

// ShortID returns the first n hex characters of a random UUID, used to
// disambiguate ticket ids filed within the same second.
func ShortID(n int) string {
	id := uuid.NewString()
	id = id[:8] // first group is plain hex
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}

// CreateFolder makes the directory (and parents) if it does not exist yet.
func CreateFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
