package identity

import "strings"

// Event type spellings observed from the provider over time. Both the
// dotted and colon-separated forms have been delivered.
var eventKinds = map[string]EventKind{
	"user.created": Created,
	"user:created": Created,
	"user.updated": Updated,
	"user:updated": Updated,
	"user.deleted": Deleted,
	"user:deleted": Deleted,
}

// Normalize converts a raw webhook payload into a canonical identity. It is
// a pure function: no I/O, no side effects. It returns nil when the event
// type is not a user lifecycle event or when no remote id can be found
// anywhere in the payload; callers treat nil as a deliberate no-op.
//
// The payload shape has drifted across provider versions: fields may sit at
// the top level, under "object", or under "user". Each field is extracted
// through an ordered list of rules, first match wins.
func Normalize(eventType string, payload map[string]any) *Canonical {
	kind, ok := eventKinds[strings.ToLower(strings.TrimSpace(eventType))]
	if !ok {
		return nil
	}

	// Candidate objects searched in priority order.
	scopes := []map[string]any{payload}
	if obj := childMap(payload, "object"); obj != nil {
		scopes = append(scopes, obj)
	}
	if usr := childMap(payload, "user"); usr != nil {
		scopes = append(scopes, usr)
	}

	remoteID := firstString(scopes, "id")
	if remoteID == "" {
		return nil
	}

	c := &Canonical{
		RemoteID: remoteID,
		Email:    extractEmail(scopes),
		Username: firstString(scopes, "username"),
		ImageURL: firstString(scopes, "image_url", "profile_image_url", "imageUrl"),
		Kind:     kind,
	}

	c.FirstName = firstString(scopes, "first_name", "firstName")
	c.LastName = firstString(scopes, "last_name", "lastName")
	c.Name = firstString(scopes, "name", "fullName", "full_name")
	if c.Name == "" {
		c.Name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}

	if b, ok := firstBool(scopes, "has_image", "hasImage"); ok {
		c.HasImage = b
	} else {
		c.HasImage = c.ImageURL != ""
	}

	c.PublicMetadata = firstMap(scopes, "public_metadata", "publicMetadata")
	c.PrivateMetadata = firstMap(scopes, "private_metadata", "privateMetadata")
	c.UnsafeMetadata = firstMap(scopes, "unsafe_metadata", "unsafeMetadata")
	c.ExternalAccounts = firstMapList(scopes, "external_accounts", "externalAccounts")

	return c
}

// extractEmail applies the email precedence within each scope before
// descending to the next: explicit single-email field, then the first entry
// of that scope's multi-email list. A top-level email list therefore beats a
// nested user object's email. Lower-cased; empty when absent.
func extractEmail(scopes []map[string]any) string {
	for _, scope := range scopes {
		for _, k := range []string{"email", "email_address", "primary_email_address"} {
			if s, ok := scope[k].(string); ok && s != "" {
				return strings.ToLower(s)
			}
		}
		if s := firstListEmail(scope); s != "" {
			return s
		}
	}
	return ""
}

func firstListEmail(scope map[string]any) string {
	for _, listKey := range []string{"email_addresses", "emailAddresses"} {
		list, ok := scope[listKey].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		entry, ok := list[0].(map[string]any)
		if !ok {
			continue
		}
		for _, k := range []string{"email_address", "emailAddress", "email"} {
			if s, ok := entry[k].(string); ok && s != "" {
				return strings.ToLower(s)
			}
		}
	}
	return ""
}

func childMap(m map[string]any, key string) map[string]any {
	child, _ := m[key].(map[string]any)
	return child
}

func firstString(scopes []map[string]any, keys ...string) string {
	for _, scope := range scopes {
		for _, k := range keys {
			if s, ok := scope[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstBool(scopes []map[string]any, keys ...string) (bool, bool) {
	for _, scope := range scopes {
		for _, k := range keys {
			if b, ok := scope[k].(bool); ok {
				return b, true
			}
		}
	}
	return false, false
}

func firstMap(scopes []map[string]any, keys ...string) map[string]any {
	for _, scope := range scopes {
		for _, k := range keys {
			if m, ok := scope[k].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func firstMapList(scopes []map[string]any, keys ...string) []map[string]any {
	for _, scope := range scopes {
		for _, k := range keys {
			list, ok := scope[k].([]any)
			if !ok {
				continue
			}
			out := make([]map[string]any, 0, len(list))
			for _, item := range list {
				if m, ok := item.(map[string]any); ok {
					out = append(out, m)
				}
			}
			return out
		}
	}
	return nil
}
