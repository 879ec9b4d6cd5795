package analytics

// reservedKeys are the context keys the client fills in itself.
var reservedKeys = []string{"library", "os"}

// ReservedKeys returns the keys that may not appear at the top level of a
// message context.
func ReservedKeys() []string {
	return append([]string(nil), reservedKeys...)
}

// Validate checks that msg is well formed and returns the API path it is
// posted to.
//
// Identify, Track, Page, Screen and Group need a UserID or an AnonymousID;
// Alias and Batch do not. No variant may use a reserved key in its Context.
// The identity check runs first, so a message failing both reports
// ErrMissingIdentity. Batch members are not checked individually.
//
// Validate never modifies msg. Errors are *ValidationError.
func Validate(msg Message) (string, error) {
	msg = normalize(msg)
	if msg == nil {
		return "", &ValidationError{Err: ErrNilMessage}
	}

	typ := msg.Type()
	path := typ.Path()
	if path == "" {
		return "", &ValidationError{Type: typ, Err: ErrUnknownType}
	}

	h := msg.header()
	if typ.requiresIdentity() && h.userID == "" && h.anonymousID == "" {
		return "", &ValidationError{Type: typ, Err: ErrMissingIdentity}
	}

	if key, ok := reservedKeyIn(h.context); ok {
		return "", &ValidationError{Type: typ, Key: key, Err: ErrReservedKeyword}
	}

	return path, nil
}

// reservedKeyIn returns the first reserved key, in reservedKeys order,
// present in ctx. A nil context never conflicts.
func reservedKeyIn(ctx Properties) (string, bool) {
	for _, key := range reservedKeys {
		if _, ok := ctx[key]; ok {
			return key, true
		}
	}
	return "", false
}
