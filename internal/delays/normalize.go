package delays

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/flight-delays/internal/common"
)

// Normalize validates a raw provider item and converts it into a DelayRecord.
// The boolean is false when the item must be dropped: a missing or unparseable
// timestamp, or an airport IATA code that is not three letters.
func Normalize(item RawItem, dir Direction) (DelayRecord, bool) {
	depStr := strings.TrimSpace(item.DepTimeUTC)
	arrStr := strings.TrimSpace(item.ArrTimeUTC)
	if depStr == "" || arrStr == "" {
		return DelayRecord{}, false
	}

	depTime, err := time.Parse(ProviderTimeLayout, depStr)
	if err != nil {
		return DelayRecord{}, false
	}
	arrTime, err := time.Parse(ProviderTimeLayout, arrStr)
	if err != nil {
		return DelayRecord{}, false
	}

	depIATA := common.NormalizeCode(item.DepIATA)
	arrIATA := common.NormalizeCode(item.ArrIATA)
	if !common.IsIATA(depIATA) || !common.IsIATA(arrIATA) {
		return DelayRecord{}, false
	}

	return DelayRecord{
		AirlineIATA: strings.TrimSpace(item.AirlineIATA),
		FlightIATA:  strings.TrimSpace(item.FlightIATA),
		DepIATA:     depIATA,
		DepICAO:     common.NormalizeCode(item.DepICAO),
		ArrIATA:     arrIATA,
		ArrICAO:     common.NormalizeCode(item.ArrICAO),
		Delayed:     ParseDelay(item.Delayed),
		Direction:   dir,
		DepTime:     depTime.UTC(),
		ArrTime:     arrTime.UTC(),
	}, true
}

// ParseDelay coerces the provider's delay value into whole minutes.
// Missing, non-numeric and negative values become 0; fractions truncate.
func ParseDelay(v any) int {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return clampDelay(float64(n))
		}
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		f = float64(n)
	default:
		return 0
	}
	return clampDelay(f)
}

func clampDelay(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
