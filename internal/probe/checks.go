package probe

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const statusUp = "UP"

// Check is a named predicate over a parsed response.
type Check struct {
	Name string
	Fn   func(*Response) bool
}

// StatusIs passes when the HTTP status equals code.
func StatusIs(code int) Check {
	return Check{
		Name: fmt.Sprintf("status is %d", code),
		Fn:   func(r *Response) bool { return r.StatusCode == code },
	}
}

// IsJSON passes when Content-Type contains application/json. A missing
// header is a failed check, not an exception.
func IsJSON() Check {
	return Check{
		Name: "response is JSON",
		Fn: func(r *Response) bool {
			return strings.Contains(r.ContentType(), "application/json")
		},
	}
}

// StatusUp passes when the body's status field is the string "UP".
func StatusUp() Check {
	return Check{
		Name: "status is UP",
		Fn: func(r *Response) bool {
			status := r.JSON.Get("status")
			return status.Type == gjson.String && status.Str == statusUp
		},
	}
}

// ChecksArray passes when the body's checks field is an array. An absent or
// falsy field counts as an empty array.
func ChecksArray() Check {
	return Check{
		Name: "checks array exists",
		Fn: func(r *Response) bool {
			checks := r.JSON.Get("checks")
			if isFalsy(checks) {
				return true
			}
			return checks.IsArray()
		},
	}
}

// NamedCheckUp passes when the checks array holds an entry called name whose
// status is "UP". "Keycloak health check" yields the check name
// "keycloak check exists".
func NamedCheckUp(name string) Check {
	return Check{
		Name: checkLabel(name) + " check exists",
		Fn: func(r *Response) bool {
			checks := r.JSON.Get("checks")
			if !checks.IsArray() {
				return false
			}
			found := false
			checks.ForEach(func(_, entry gjson.Result) bool {
				n, s := entry.Get("name"), entry.Get("status")
				if n.Type == gjson.String && n.Str == name && s.Type == gjson.String && s.Str == statusUp {
					found = true
					return false
				}
				return true
			})
			return found
		},
	}
}

func checkLabel(name string) string {
	label := strings.ToLower(strings.TrimSpace(name))
	label = strings.TrimSuffix(label, " health check")
	label = strings.TrimSuffix(label, " check")
	if label == "" {
		return "named"
	}
	return label
}

func isFalsy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return r.Num == 0
	case gjson.String:
		return r.Str == ""
	}
	return false
}

// StandardChecks are evaluated for every health endpoint.
func StandardChecks() []Check {
	return []Check{StatusIs(http.StatusOK), IsJSON(), StatusUp()}
}
