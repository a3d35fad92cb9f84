package bfstream

import "time"

// StreamMarketDefinitionStatus is the lifecycle state of a market as
// reported in its market definition. An absent field decodes as the empty
// string.
type StreamMarketDefinitionStatus string

const (
	MarketInactive  StreamMarketDefinitionStatus = "INACTIVE"
	MarketOpen      StreamMarketDefinitionStatus = "OPEN"
	MarketSuspended StreamMarketDefinitionStatus = "SUSPENDED"
	MarketClosed    StreamMarketDefinitionStatus = "CLOSED"
)

// StreamRunnerDefinitionStatus is a runner's lifecycle state within its
// market. An absent field decodes as the empty string.
type StreamRunnerDefinitionStatus string

const (
	RunnerActive         StreamRunnerDefinitionStatus = "ACTIVE"
	RunnerWinner         StreamRunnerDefinitionStatus = "WINNER"
	RunnerLoser          StreamRunnerDefinitionStatus = "LOSER"
	RunnerRemoved        StreamRunnerDefinitionStatus = "REMOVED"
	RunnerRemovedVacant  StreamRunnerDefinitionStatus = "REMOVED_VACANT"
	RunnerHidden         StreamRunnerDefinitionStatus = "HIDDEN"
	RunnerPlaced         StreamRunnerDefinitionStatus = "PLACED"
)

// PriceLadderType selects how a market's available prices are laid out.
type PriceLadderType string

const (
	LadderClassic   PriceLadderType = "CLASSIC"
	LadderFinest    PriceLadderType = "FINEST"
	LadderLineRange PriceLadderType = "LINE_RANGE"
)

// PriceLadderDefinition names which ladder type a market uses.
type PriceLadderDefinition struct {
	Type PriceLadderType `json:"type"`
}

// KeyLineSelection is one runner/handicap pair within a key line market.
type KeyLineSelection struct {
	ID        SelectionID `json:"id"`
	Handicap  float64     `json:"hc"`
}

// KeyLineDefinition describes the key line for asian-handicap-style markets.
type KeyLineDefinition struct {
	KeyLine []KeyLineSelection `json:"kl,omitempty"`
}

// RunnerDefinition is the static (non-ladder) description of a runner,
// delivered as part of a market definition rather than a runner change.
type RunnerDefinition struct {
	SortPriority     int                           `json:"sortPriority"`
	RemovalDate      *time.Time                    `json:"removalDate,omitempty"`
	ID               *SelectionID                  `json:"id,omitempty"`
	Handicap         *float64                      `json:"hc,omitempty"`
	AdjustmentFactor *float64                      `json:"adjustmentFactor,omitempty"`
	BSP              *float64                      `json:"bsp,omitempty"`
	Status           StreamRunnerDefinitionStatus  `json:"status,omitempty"`
}

// MarketDefinition is the full static description of a market, delivered on
// SUB_IMAGE and whenever any of its fields change.
type MarketDefinition struct {
	Venue                  *string                `json:"venue,omitempty"`
	RaceType               *string                `json:"raceType,omitempty"`
	SettledTime            *time.Time             `json:"settledTime,omitempty"`
	Timezone               *string                `json:"timezone,omitempty"`
	EachWayDivisor         *float64               `json:"eachWayDivisor,omitempty"`
	Regulators             []string               `json:"regulators,omitempty"`
	MarketType             *string                `json:"marketType,omitempty"`
	MarketBaseRate         float64                `json:"marketBaseRate"`
	NumberOfWinners        int                    `json:"numberOfWinners"`
	CountryCode            *string                `json:"countryCode,omitempty"`
	LineMaxUnit            *float64               `json:"lineMaxUnit,omitempty"`
	LineMinUnit            *float64               `json:"lineMinUnit,omitempty"`
	LineInterval           *float64               `json:"lineInterval,omitempty"`
	InPlay                 bool                   `json:"inPlay"`
	BetDelay               int                    `json:"betDelay"`
	BSPMarket              bool                   `json:"bspMarket"`
	BettingType            *string                `json:"bettingType,omitempty"`
	NumberOfActiveRunners  int                    `json:"numberOfActiveRunners"`
	EventID                *string                `json:"eventId,omitempty"`
	CrossMatching          bool                   `json:"crossMatching"`
	RunnersVoidable        bool                   `json:"runnersVoidable"`
	TurnInPlayEnabled      bool                   `json:"turnInPlayEnabled"`
	PriceLadderDefinition  *PriceLadderDefinition `json:"priceLadderDefinition,omitempty"`
	KeyLineDefinition      *KeyLineDefinition     `json:"keyLineDefinition,omitempty"`
	SuspendTime            *time.Time             `json:"suspendTime,omitempty"`
	DiscountAllowed        bool                   `json:"discountAllowed"`
	PersistenceEnabled     bool                   `json:"persistenceEnabled"`
	Runners                []RunnerDefinition     `json:"runners,omitempty"`
	Version                int64                  `json:"version"`
	EventTypeID            *string                `json:"eventTypeId,omitempty"`
	Complete               bool                   `json:"complete"`
	OpenDate               *time.Time             `json:"openDate,omitempty"`
	MarketTime             *time.Time             `json:"marketTime,omitempty"`
	BSPReconciled          bool                   `json:"bspReconciled"`
	Status                 StreamMarketDefinitionStatus `json:"status,omitempty"`
}

// RunnerChange is a single runner's ladder/traded deltas within a market
// change. Every field besides ID/Handicap is optional: absence means "no
// change to this ladder in this message", not "clear this ladder".
type RunnerChange struct {
	ID      *SelectionID `json:"id,omitempty"`
	Handicap *float64    `json:"hc,omitempty"`

	TotalValue       *Size  `json:"tv,omitempty"`
	LastTradedPrice  *Price `json:"ltp,omitempty"`
	StartingPriceNear *Price `json:"spn,omitempty"`
	StartingPriceFar  *Price `json:"spf,omitempty"`

	Traded                    []UpdateSet2 `json:"trd,omitempty"`
	AvailableToBack           []UpdateSet2 `json:"atb,omitempty"`
	AvailableToLay            []UpdateSet2 `json:"atl,omitempty"`
	BestAvailableToBack       []UpdateSet3 `json:"batb,omitempty"`
	BestAvailableToLay        []UpdateSet3 `json:"batl,omitempty"`
	BestDisplayAvailableToBack []UpdateSet3 `json:"bdatb,omitempty"`
	BestDisplayAvailableToLay  []UpdateSet3 `json:"bdatl,omitempty"`
	StartingPriceBack         []UpdateSet2 `json:"spb,omitempty"`
	StartingPriceLay          []UpdateSet2 `json:"spl,omitempty"`
}

// MarketChange is one market's delta within a market change message.
type MarketChange struct {
	ID               MarketID          `json:"id"`
	MarketDefinition *MarketDefinition `json:"marketDefinition,omitempty"`
	TotalValue       *Size             `json:"tv,omitempty"`
	RunnerChange     []RunnerChange    `json:"rc,omitempty"`
	IsImage          bool              `json:"img,omitempty"`
	ConflateMs       *int64            `json:"con,omitempty"`
}
