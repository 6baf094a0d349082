// Package common contains shared constants and sentinel errors used across
// the directory components.
package common

// NodeTokenHeaderName is the gRPC metadata key used to carry the node token
// on server-to-server requests.
const NodeTokenHeaderName = "node_token"

// InternalPrefix marks bookkeeping fields that are never returned to an
// external caller.
const InternalPrefix = "_GNS_"

// Reserved values shared by ACLs and list fields.
const (
	// Everyone is the accessor id that matches any requester.
	Everyone = "+ALL+"
	// EntireRecord addresses the whole record in ACLs and reads.
	EntireRecord = "+ALL+"
	// NullValue is the single element of the explicit-null list.
	NullValue = "+NULL+"
	// ACLLeaf is the key holding the accessor list inside an ACL node.
	ACLLeaf = "MD"
)

// Internal record fields.
const (
	AccountInfoField = InternalPrefix + "account_info"
	GuidInfoField    = InternalPrefix + "guid_info"
	HRNGuidField     = InternalPrefix + "guid"
	PrimaryGuidField = InternalPrefix + "primary_guid"
	GroupsField      = InternalPrefix + "groups"
	GroupField       = InternalPrefix + "group"
	ACLField         = InternalPrefix + "ACL"

	// HRNField is the dotted path to the name stored inside GUID info.
	HRNField = GuidInfoField + ".name"
)

// IsInternalField reports whether field is reserved bookkeeping.
func IsInternalField(field string) bool {
	return len(field) >= len(InternalPrefix) && field[:len(InternalPrefix)] == InternalPrefix
}
