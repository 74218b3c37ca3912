package gravity

import (
	"time"

	"github.com/canopy-network/gravityx/pkg/gravity"
)

const (
	PollsTableName     = "polls"
	UsernamesTableName = "usernames"
)

// PollColumns defines the schema for the polls table (one row per poll, latest updated_at wins).
var PollColumns = []ColumnDef{
	{Name: "poll_id", Type: "UInt64", PgType: "BIGINT PRIMARY KEY"},
	{Name: "start_date", Type: "DateTime64(6)", PgType: "TIMESTAMP WITH TIME ZONE NOT NULL"},
	{Name: "end_date", Type: "DateTime64(6)", PgType: "TIMESTAMP WITH TIME ZONE NOT NULL"},
	{Name: "updated_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4", PgType: "TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()"},
}

// Poll is one row of the polls table.
type Poll struct {
	PollID    uint64    `ch:"poll_id" json:"poll_id"`
	StartDate time.Time `ch:"start_date" json:"start_date"`
	EndDate   time.Time `ch:"end_date" json:"end_date"`
	UpdatedAt time.Time `ch:"updated_at" json:"updated_at"`
}

// Window converts the row to a gravity.PollWindow.
func (p Poll) Window() gravity.PollWindow {
	return gravity.PollWindow{PollID: p.PollID, StartDate: p.StartDate.UTC(), EndDate: p.EndDate.UTC()}
}

// UsernameColumns defines the schema for the usernames table. Addresses are stored lower-cased.
var UsernameColumns = []ColumnDef{
	{Name: "address", Type: "String", Codec: "ZSTD(1)", PgType: "TEXT PRIMARY KEY"},
	{Name: "username", Type: "String", Codec: "ZSTD(1)", PgType: "TEXT NOT NULL"},
	{Name: "updated_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4", PgType: "TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()"},
}

// Username maps a voter address to a display name.
type Username struct {
	Address  string `ch:"address" json:"address"`
	Username string `ch:"username" json:"username"`
}
