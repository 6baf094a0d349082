// Package responsecode defines the stable protocol codes every directory
// operation reports. Codes are values, never errors: callers branch on them
// and format their own user-facing messages.
package responsecode

// Code is an operation outcome.
type Code int

const (
	NoError Code = iota
	DuplicateName
	DuplicateID
	ConflictingGuid
	BadAccount
	BadGuid
	BadAlias
	BadField
	FieldNotFound
	AccessDenied
	SignatureError
	VerificationError
	AlreadyVerified
	StaleCommand
	TooManyGuids
	TooManyAliases
	UpdateError
	JSONParseError
	UnspecifiedError
)

type codeInfo struct {
	name    string
	token   string
	message string
}

var codes = map[Code]codeInfo{
	NoError:           {"NO_ERROR", "+OK+", ""},
	DuplicateName:     {"DUPLICATE_NAME", "+DUPLICATENAME+", "name is already bound to another guid"},
	DuplicateID:       {"DUPLICATE_ID", "+DUPLICATEGUID+", "record already exists"},
	ConflictingGuid:   {"CONFLICTING_GUID", "+CONFLICTINGGUID+", "guid is already bound to another name"},
	BadAccount:        {"BAD_ACCOUNT", "+BADACCOUNT+", "not an account guid"},
	BadGuid:           {"BAD_GUID", "+BADGUID+", "guid not found"},
	BadAlias:          {"BAD_ALIAS", "+BADALIAS+", "alias not found"},
	BadField:          {"BAD_FIELD", "+BADFIELD+", "field cannot be used this way"},
	FieldNotFound:     {"FIELD_NOT_FOUND", "+FIELDNOTFOUND+", "field not found"},
	AccessDenied:      {"ACCESS_DENIED", "+ACCESS_DENIED+", "access denied"},
	SignatureError:    {"SIGNATURE_ERROR", "+BAD_SIGNATURE+", "signature does not verify"},
	VerificationError: {"VERIFICATION_ERROR", "+VERIFICATIONERROR+", "verification failed"},
	AlreadyVerified:   {"ALREADY_VERIFIED", "+ALREADYVERIFIED+", "account already verified"},
	StaleCommand:      {"STALE_COMMAND", "+STALE_COMMMAND+", "command timestamp is too old"},
	TooManyGuids:      {"TOO_MANY_GUIDS", "+TOMANYGUIDS+", "account has too many guids"},
	TooManyAliases:    {"TOO_MANY_ALIASES", "+TOMANYALIASES+", "account has too many aliases"},
	UpdateError:       {"UPDATE_ERROR", "+UPDATEERROR+", "update failed"},
	JSONParseError:    {"JSON_PARSE_ERROR", "+JSONPARSEERROR+", "unable to parse stored value"},
	UnspecifiedError:  {"UNSPECIFIED_ERROR", "+GENERICERROR+", "unspecified error"},
}

var byToken = func() map[string]Code {
	m := make(map[string]Code, len(codes))
	for c, info := range codes {
		m[info.token] = c
	}
	return m
}()

var byName = func() map[string]Code {
	m := make(map[string]Code, len(codes))
	for c, info := range codes {
		m[info.name] = c
	}
	return m
}()

func (c Code) info() codeInfo {
	if info, ok := codes[c]; ok {
		return info
	}
	return codes[UnspecifiedError]
}

// Name is the enum name, e.g. "DUPLICATE_NAME".
func (c Code) Name() string { return c.info().name }

// Token is the short protocol code, e.g. "+DUPLICATENAME+".
func (c Code) Token() string { return c.info().token }

// Message is the default human-readable description.
func (c Code) Message() string { return c.info().message }

// IsError reports whether c is anything but NoError.
func (c Code) IsError() bool { return c != NoError }

func (c Code) String() string { return c.Name() }

// ParseToken maps a protocol token back to its Code.
func ParseToken(token string) (Code, bool) {
	c, ok := byToken[token]
	return c, ok
}

// ParseName maps an enum name back to its Code.
func ParseName(name string) (Code, bool) {
	c, ok := byName[name]
	return c, ok
}
