package bfstream

import "time"

// Side is the bet side of an order.
type Side string

const (
	SideBack Side = "B"
	SideLay  Side = "L"
)

// PersistenceType controls what happens to an unmatched order at turn-in-play.
type PersistenceType string

const (
	PersistLapse  PersistenceType = "L"
	PersistPersist PersistenceType = "P"
	PersistMarketOnClose PersistenceType = "MOC"
)

// OrderType is the order's matching behaviour.
type OrderType string

const (
	OrderLimit         OrderType = "L"
	OrderLimitOnClose  OrderType = "LOC"
	OrderMarketOnClose OrderType = "MOC"
)

// StreamOrderStatus is an order's current lifecycle state.
type StreamOrderStatus string

const (
	OrderExecutable       StreamOrderStatus = "E"
	OrderExecutionComplete StreamOrderStatus = "EC"
)

// Order is a single unmatched (resting) order on a runner.
type Order struct {
	Side                Side             `json:"side"`
	SizeVoided          *float64         `json:"sv,omitempty"`
	PersistenceType      PersistenceType  `json:"pt,omitempty"`
	OrderType           OrderType        `json:"ot,omitempty"`
	LapseStatusReasonCode *string        `json:"lsrc,omitempty"`
	Price               Price            `json:"p"`
	SizeCancelled       *float64         `json:"sc,omitempty"`
	RegulatorCode       string           `json:"rc"`
	Size                Size             `json:"s"`
	PlaceDate           *time.Time       `json:"pd,omitempty"`
	RegulatorAuthCode   *string          `json:"rac,omitempty"`
	MatchedDate         *time.Time       `json:"md,omitempty"`
	CancelledDate       *time.Time       `json:"cd,omitempty"`
	LapsedDate          *time.Time       `json:"ld,omitempty"`
	SizeLapsed          *float64         `json:"sl,omitempty"`
	AveragePriceMatched *Price           `json:"avp,omitempty"`
	SizeMatched         *float64         `json:"sm,omitempty"`
	OrderReference      *string          `json:"rfo,omitempty"`
	BetID               BetID            `json:"id"`
	BSP                 *float64         `json:"bsp,omitempty"`
	StrategyReference   *CustomerStrategyRef `json:"rfs,omitempty"`
	Status              StreamOrderStatus `json:"status,omitempty"`
	SizeRemaining       *float64         `json:"sr,omitempty"`
}

// StrategyMatchChange holds the matched-back/matched-lay ladders for a
// single customer strategy on a runner.
type StrategyMatchChange struct {
	MatchedBacks []UpdateSet2 `json:"mb,omitempty"`
	MatchedLays  []UpdateSet2 `json:"ml,omitempty"`
}

// OrderRunnerChange is one runner's order deltas within an order change.
type OrderRunnerChange struct {
	ID              SelectionID                                `json:"id"`
	Handicap        *float64                                   `json:"hc,omitempty"`
	MatchedBacks    []UpdateSet2                               `json:"mb,omitempty"`
	MatchedLays     []UpdateSet2                               `json:"ml,omitempty"`
	StrategyMatches map[CustomerStrategyRef]StrategyMatchChange `json:"smc,omitempty"`
	UnmatchedOrders []Order                                    `json:"uo,omitempty"`
	FullImage       bool                                       `json:"fullImage,omitempty"`
}

// OrderMarketChange is one market's order deltas within an order change
// message.
type OrderMarketChange struct {
	AccountID         *int64              `json:"accountId,omitempty"`
	OrderRunnerChange []OrderRunnerChange `json:"orc,omitempty"`
	Closed            bool                `json:"closed,omitempty"`
	MarketID          MarketID            `json:"id"`
	FullImage         bool                `json:"fullImage,omitempty"`
}
