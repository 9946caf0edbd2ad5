// Package model defines the records managed by the access engine: user
// accounts, the resources they own, and the global API scope catalog.
package model

// Kind identifies a record type in the store.
type Kind string

const (
	KindUser          Kind = "user"
	KindTag           Kind = "tag"
	KindAPIClient     Kind = "api_client"
	KindAPIToken      Kind = "api_token"
	KindUserSetting   Kind = "user_setting"
	KindAPIScope      Kind = "api_scope"
	KindAPITokenScope Kind = "api_token_scope"
)

// Record is implemented by every persistable type in this package.
type Record interface {
	RecordKind() Kind
	RecordID() string
	SetRecordID(id string)
}

// Owned is a record that carries an owner reference to a user account.
// Visibility and mutability of owned records is restricted to the owner.
type Owned interface {
	Record
	Owner() string
	SetOwner(userID string)
}

// OwnedKinds lists the kinds whose records implement Owned.
var OwnedKinds = []Kind{KindTag, KindAPIClient, KindAPIToken, KindUserSetting}
