package integration

import (
	"fmt"
	"strings"
	"time"
)

// TestUser generates unique test user credentials using a timestamp
func TestUser(suffix string) (username, email, password string) {
	ts := time.Now().UnixNano()
	username = fmt.Sprintf("user-%d-%s", ts, suffix)
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

// ExtractSecretFromLink pulls the plaintext reset secret out of a reset link
// of the form {base}/#/resetpassword/{secret}.
func ExtractSecretFromLink(link string) string {
	idx := strings.LastIndex(link, "/")
	if idx < 0 || idx+1 >= len(link) {
		return ""
	}
	return link[idx+1:]
}
