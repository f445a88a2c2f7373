// Package protocol defines the fixed message schemas the connection layer
// registers at startup: the handshake/auth exchange, UI page control, and
// entity-UI asset references. Ids are stable wire constants; changing a
// schema's field order here is a breaking protocol change.
package protocol

import (
	"github.com/ndegiovanni/hywire/pkg/codec"
	"github.com/ndegiovanni/hywire/pkg/schema"
)

// Message ids. The gap-free 10..18 range is reserved for the connection
// bootstrap and UI messages; gameplay messages live above 32.
const (
	IDHandshake      uint32 = 10
	IDConnectAccept  uint32 = 11
	IDDisconnect     uint32 = 12
	IDAuthToken      uint32 = 13
	IDAuthResult     uint32 = 14
	IDUIPageOpen     uint32 = 15
	IDUIPageClose    uint32 = 16
	IDUIWidgetUpdate uint32 = 17
	IDEntityAssetRef uint32 = 18
)

// Handshake opens a connection: protocol version, client id as two uint64
// halves, and an optional free-form client build string.
var Handshake = schema.MustNew(IDHandshake, "Handshake",
	schema.Field{Name: "protocolVersion", Kind: schema.Scalar(4)},
	schema.Field{Name: "clientId", Kind: schema.Struct(8, 8)},
	schema.Field{Name: "clientBuild", Kind: schema.String(), Nullable: true},
)

// ConnectAccept answers a successful handshake with the assigned player id,
// spawn position, world name and an optional message of the day.
var ConnectAccept = schema.MustNew(IDConnectAccept, "ConnectAccept",
	schema.Field{Name: "playerId", Kind: schema.Scalar(8)},
	schema.Field{Name: "spawn", Kind: schema.Struct(4, 4, 4)},
	schema.Field{Name: "world", Kind: schema.String()},
	schema.Field{Name: "motd", Kind: schema.String(), Nullable: true},
)

// Disconnect carries a reason code and an optional human-readable detail.
var Disconnect = schema.MustNew(IDDisconnect, "Disconnect",
	schema.Field{Name: "reason", Kind: schema.Scalar(1)},
	schema.Field{Name: "detail", Kind: schema.String(), Nullable: true},
)

// AuthToken submits an opaque token plus the scopes the client requests.
var AuthToken = schema.MustNew(IDAuthToken, "AuthToken",
	schema.Field{Name: "token", Kind: schema.Bytes()},
	schema.Field{Name: "scopes", Kind: schema.Array(schema.String()), Nullable: true},
)

// AuthResult reports the auth verdict, an optional session key and an
// optional expiry.
var AuthResult = schema.MustNew(IDAuthResult, "AuthResult",
	schema.Field{Name: "accepted", Kind: schema.Scalar(1)},
	schema.Field{Name: "expiresAt", Kind: schema.Scalar(8), Nullable: true},
	schema.Field{Name: "sessionKey", Kind: schema.Bytes(), Nullable: true},
)

// UIPageOpen instructs the client to open a UI page with its widget set.
var UIPageOpen = schema.MustNew(IDUIPageOpen, "UIPageOpen",
	schema.Field{Name: "pageId", Kind: schema.Scalar(2)},
	schema.Field{Name: "flags", Kind: schema.Scalar(1), Nullable: true},
	schema.Field{Name: "title", Kind: schema.String(), Nullable: true},
	schema.Field{Name: "widgetIds", Kind: schema.Array(schema.Scalar(4))},
)

// UIPageClose closes a page.
var UIPageClose = schema.MustNew(IDUIPageClose, "UIPageClose",
	schema.Field{Name: "pageId", Kind: schema.Scalar(2)},
)

// UIWidgetUpdate pushes new state into one widget: a packed property blob
// and optional per-slot labels.
var UIWidgetUpdate = schema.MustNew(IDUIWidgetUpdate, "UIWidgetUpdate",
	schema.Field{Name: "pageId", Kind: schema.Scalar(2)},
	schema.Field{Name: "widgetId", Kind: schema.Scalar(4)},
	schema.Field{Name: "properties", Kind: schema.Bytes()},
	schema.Field{Name: "labels", Kind: schema.Array(schema.String()), Nullable: true},
)

// EntityAssetRef binds an entity to its UI assets: model/icon digests and
// optional attachment blobs.
var EntityAssetRef = schema.MustNew(IDEntityAssetRef, "EntityAssetRef",
	schema.Field{Name: "entityId", Kind: schema.Scalar(8)},
	schema.Field{Name: "modelDigest", Kind: schema.Struct(8, 8)},
	schema.Field{Name: "iconIds", Kind: schema.Array(schema.Scalar(2)), Nullable: true},
	schema.Field{Name: "attachments", Kind: schema.Array(schema.Bytes()), Nullable: true},
)

// All lists every schema in id order.
func All() []*schema.Schema {
	return []*schema.Schema{
		Handshake,
		ConnectAccept,
		Disconnect,
		AuthToken,
		AuthResult,
		UIPageOpen,
		UIPageClose,
		UIWidgetUpdate,
		EntityAssetRef,
	}
}

// NewRegistry builds the codec registry for the full protocol table.
func NewRegistry() *codec.Registry {
	reg := codec.NewRegistry()
	for _, s := range All() {
		reg.MustRegister(s)
	}
	return reg
}
