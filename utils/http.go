// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// SyncHTTPClient is shared by background workers calling other services.
var SyncHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
