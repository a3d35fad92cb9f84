package bfstream

import (
	"encoding/json"
	"fmt"
)

// AuthenticationMessage is the first request sent after the connection
// message arrives; session and app key authenticate the socket.
type AuthenticationMessage struct {
	Operation string `json:"op"`
	ID        *int   `json:"id,omitempty"`
	Session   string `json:"session"`
	AppKey    string `json:"appKey"`
}

// NewAuthenticationMessage builds the authentication request. id is
// conventionally -1 for the handshake's own authentication message.
func NewAuthenticationMessage(id int, sessionToken, appKey string) AuthenticationMessage {
	return AuthenticationMessage{Operation: "authentication", ID: &id, Session: sessionToken, AppKey: appKey}
}

// HeartbeatMessage requests the server echo a status message, used by the
// supervisor's heartbeat loop to detect a silently dead connection.
type HeartbeatMessage struct {
	Operation string `json:"op"`
	ID        *int   `json:"id,omitempty"`
}

// NewHeartbeatMessage builds a heartbeat request with the given id.
func NewHeartbeatMessage(id int) HeartbeatMessage {
	return HeartbeatMessage{Operation: "heartbeat", ID: &id}
}

// LadderLevel restricts best-offers ladders to their top N levels; valid
// range is 1 through 10.
type LadderLevel int

// NewLadderLevel validates and constructs a LadderLevel.
func NewLadderLevel(n int) (LadderLevel, error) {
	if n < 1 || n > 10 {
		return 0, fmt.Errorf("ladder level must be between 1 and 10, got %d", n)
	}
	return LadderLevel(n), nil
}

// Field selects which parts of a runner's book are delivered.
type Field string

const (
	FieldExBestOffersDisp Field = "EX_BEST_OFFERS_DISP"
	FieldExBestOffers     Field = "EX_BEST_OFFERS"
	FieldExAllOffers      Field = "EX_ALL_OFFERS"
	FieldExTraded         Field = "EX_TRADED"
	FieldExTradedVol      Field = "EX_TRADED_VOL"
	FieldExMarketDef      Field = "EX_MARKET_DEF"
	FieldSPTraded         Field = "SP_TRADED"
	FieldSPProjected      Field = "SP_PROJECTED"
)

// MarketDataFilter narrows the data delivered per subscribed market.
type MarketDataFilter struct {
	LadderLevels *LadderLevel `json:"ladderLevels,omitempty"`
	Fields       []Field      `json:"fields,omitempty"`
}

// MarketFilter selects which markets a MarketSubscription applies to.
type MarketFilter struct {
	MarketIDs          []MarketID `json:"marketIds,omitempty"`
	BSPMarket          *bool      `json:"bspMarket,omitempty"`
	BettingTypes       []string   `json:"bettingTypes,omitempty"`
	EventTypeIDs       []string   `json:"eventTypeIds,omitempty"`
	EventIDs           []string   `json:"eventIds,omitempty"`
	TurnInPlayEnabled  *bool      `json:"turnInPlayEnabled,omitempty"`
	MarketTypes        []string   `json:"marketTypes,omitempty"`
	Venues             []string   `json:"venues,omitempty"`
	CountryCodes       []string   `json:"countryCodes,omitempty"`
	RaceTypes          []string   `json:"raceTypes,omitempty"`
}

// MarketSubscriptionMessage subscribes (or resubscribes) to market change
// deltas for markets matching Filter.
type MarketSubscriptionMessage struct {
	Operation            string            `json:"op"`
	ID                   *int              `json:"id,omitempty"`
	SegmentationEnabled  *bool             `json:"segmentationEnabled,omitempty"`
	Clock                *string           `json:"clk,omitempty"`
	HeartbeatMs          *int64            `json:"heartbeatMs,omitempty"`
	InitialClock         *string           `json:"initialClk,omitempty"`
	MarketFilter         MarketFilter      `json:"marketFilter"`
	ConflateMs           *int64            `json:"conflateMs,omitempty"`
	MarketDataFilter     *MarketDataFilter `json:"marketDataFilter,omitempty"`
}

// OrderFilter selects which markets/accounts an OrderSubscription applies
// to. An empty filter means "all of the authenticated account's orders".
type OrderFilter struct {
	IncludeOverallPosition *bool      `json:"includeOverallPosition,omitempty"`
	CustomerStrategyRefs   []string   `json:"customerStrategyRefs,omitempty"`
	PartitionMatchedByStrategyRef *bool `json:"partitionMatchedByStrategyRef,omitempty"`
}

// OrderSubscriptionMessage subscribes (or resubscribes) to order change
// deltas for the authenticated account.
type OrderSubscriptionMessage struct {
	Operation           string       `json:"op"`
	ID                  *int         `json:"id,omitempty"`
	SegmentationEnabled *bool        `json:"segmentationEnabled,omitempty"`
	OrderFilter         OrderFilter  `json:"orderFilter"`
	Clock               *string      `json:"clk,omitempty"`
	HeartbeatMs         *int64       `json:"heartbeatMs,omitempty"`
	InitialClock        *string      `json:"initialClk,omitempty"`
	ConflateMs          *int64       `json:"conflateMs,omitempty"`
}

// EncodeRequest marshals any of the four request message kinds to JSON.
// Used by the codec encoder, which appends the CRLF frame terminator.
func EncodeRequest(msg any) ([]byte, error) {
	switch msg.(type) {
	case AuthenticationMessage, HeartbeatMessage, MarketSubscriptionMessage, OrderSubscriptionMessage:
		return json.Marshal(msg)
	default:
		return nil, fmt.Errorf("bfstream: %T is not a request message", msg)
	}
}
