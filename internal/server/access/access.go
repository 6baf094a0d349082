// Package access is the gate every field read and write passes through:
// request freshness, signature verification against the requester's public
// key, and per-field whitelist/blacklist evaluation.
package access

import (
	"fmt"
	"strings"
	"time"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
)

// Type is the class of access being requested.
type Type int

const (
	Read Type = iota
	Write
)

func (t Type) String() string {
	if t == Write {
		return "write"
	}
	return "read"
}

// MetaDataType names one ACL list kept per field.
type MetaDataType int

const (
	ReadWhitelist MetaDataType = iota
	WriteWhitelist
	ReadBlacklist
	WriteBlacklist
)

var metaDataNames = [...]string{
	ReadWhitelist:  "READ_WHITELIST",
	WriteWhitelist: "WRITE_WHITELIST",
	ReadBlacklist:  "READ_BLACKLIST",
	WriteBlacklist: "WRITE_BLACKLIST",
}

func (m MetaDataType) String() string {
	if m < 0 || int(m) >= len(metaDataNames) {
		return fmt.Sprintf("MetaDataType(%d)", int(m))
	}
	return metaDataNames[m]
}

// ParseMetaDataType maps "READ_WHITELIST" and friends to their value.
func ParseMetaDataType(name string) (MetaDataType, error) {
	for i, n := range metaDataNames {
		if strings.EqualFold(n, name) {
			return MetaDataType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ACL type %q", name)
}

// Whitelist returns the whitelist consulted for t.
func Whitelist(t Type) MetaDataType {
	if t == Write {
		return WriteWhitelist
	}
	return ReadWhitelist
}

// Blacklist returns the blacklist consulted for t.
func Blacklist(t Type) MetaDataType {
	if t == Write {
		return WriteBlacklist
	}
	return ReadBlacklist
}

// Path is the record path of the accessor list for (md, field).
func Path(md MetaDataType, field string) string {
	return common.ACLField + "." + md.String() + "." + field + "." + common.ACLLeaf
}

// Header describes how a request reached this node.
type Header struct {
	// Internal marks server-to-server traffic authenticated by the transport.
	Internal bool
	// MutualAuth marks commands authenticated by mutual TLS.
	MutualAuth bool
	RequestID  string
}

// InternalHeader is the header of requests the directory issues itself.
func InternalHeader() Header { return Header{Internal: true} }

// Request is everything Check needs to decide one access.
type Request struct {
	Header Header
	// Target is the GUID whose record is accessed.
	Target string
	// Fields lists the accessed fields; empty means the entire record.
	Fields []string
	// Accessor is the claimed requester GUID, empty when anonymous.
	Accessor string
	// Signature is the hex signature over the canonical form of Command.
	Signature string
	Command   map[string]any
	// Timestamp is when the command was issued; zero when not supplied.
	Timestamp time.Time
}

func (r Request) fields() []string {
	if len(r.Fields) == 0 {
		return []string{common.EntireRecord}
	}
	return r.Fields
}

// candidates lists the ACL keys consulted for field, most specific first:
// the field, each dotted parent and the entire record.
func candidates(field string) []string {
	if field == common.EntireRecord {
		return []string{common.EntireRecord}
	}
	out := []string{field}
	for i := strings.LastIndexByte(field, '.'); i > 0; i = strings.LastIndexByte(field, '.') {
		field = field[:i]
		out = append(out, field)
	}
	return append(out, common.EntireRecord)
}
