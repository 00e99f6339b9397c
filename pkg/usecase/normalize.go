package usecase

import (
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tidwall/gjson"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// Paths probed in order when reading backend payloads
var (
	facilityIDPaths = []string{"upaId", "upa_id", "facilityId", "unidadeId", "id"}
	countsPaths     = []string{"porClassificacao", "classificationCounts", "classificacoes"}
	waitPaths       = []string{"tempoMedioEspera", "tempoMedioPorClassificacao", "averageWaitMinutes"}
	totalPaths      = []string{"totalPacientes", "total", "totalPatients"}
	occupancyPaths  = []string{"statusOcupacao", "ocupacao", "occupancyStatus"}
	timestampPaths  = []string{"ultimaAtualizacao", "timestamp", "atualizadoEm", "lastUpdated"}
	untriagedPaths  = []string{"semTriagem", "aguardandoTriagem"}
)

var occupancyLabels = map[string]types.OccupancyStatus{
	"low":      types.OccupancyLow,
	"baixa":    types.OccupancyLow,
	"baixo":    types.OccupancyLow,
	"normal":   types.OccupancyLow,
	"moderate": types.OccupancyModerate,
	"moderada": types.OccupancyModerate,
	"moderado": types.OccupancyModerate,
	"media":    types.OccupancyModerate,
	"média":    types.OccupancyModerate,
	"high":     types.OccupancyHigh,
	"alta":     types.OccupancyHigh,
	"alto":     types.OccupancyHigh,
	"lotada":   types.OccupancyHigh,
}

func firstExisting(root gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if r := root.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// NormalizeSnapshot converts a raw backend queue object into a canonical snapshot.
// Missing or non-numeric counts become 0, negative counts are clamped to 0 and the
// total is always the sum of the five classes. fetchedAt is used when the payload has no timestamp.
// An error is returned only when the payload is not JSON or no facility ID is available.
func NormalizeSnapshot(facilityID types.FacilityID, raw []byte, fetchedAt time.Time) (*model.QueueSnapshot, error) {
	if !gjson.ValidBytes(raw) {
		return nil, goerr.New("queue payload is not valid JSON",
			goerr.V("facility_id", facilityID),
			goerr.T(model.ErrTagMalformedPayload))
	}
	root := gjson.ParseBytes(raw)

	if facilityID == "" {
		facilityID = types.FacilityID(firstExisting(root, facilityIDPaths).String())
	}
	if err := facilityID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "queue payload has no facility ID", goerr.T(model.ErrTagMalformedPayload))
	}

	snapshot := model.NewQueueSnapshot(facilityID)

	counts, _ := readCounts(root, false)
	for code, n := range counts {
		stat := snapshot.Classes[code]
		stat.Count = n
		snapshot.Classes[code] = stat
	}
	if _, ok := counts[types.ClassUntriaged]; !ok {
		if r := firstExisting(root, untriagedPaths); r.Type == gjson.Number {
			snapshot.Classes[types.ClassUntriaged] = model.ClassStat{Count: clampCount(r.Int())}
		}
	}

	for code, wait := range readWaits(root) {
		stat := snapshot.Classes[code]
		stat.AverageWaitMinutes = wait
		snapshot.Classes[code] = stat
	}

	snapshot.Occupancy = parseOccupancy(firstExisting(root, occupancyPaths))
	if ts, ok := parseTimestamp(firstExisting(root, timestampPaths)); ok {
		snapshot.LastUpdated = ts
	} else {
		snapshot.LastUpdated = fetchedAt
	}

	snapshot.RecomputeTotals()
	return snapshot, nil
}

// DeclaredTotal returns the total patient count as stated by the backend, if any
func DeclaredTotal(raw []byte) (int, bool) {
	r := firstExisting(gjson.ParseBytes(raw), totalPaths)
	if r.Type != gjson.Number {
		return 0, false
	}
	return int(r.Int()), true
}

// ParseDelta reads a push-channel event. Events without a facility ID or timestamp,
// or with a non-numeric count, are rejected as malformed.
func ParseDelta(raw []byte) (*model.QueueDelta, error) {
	if !gjson.ValidBytes(raw) {
		return nil, goerr.New("delta is not valid JSON", goerr.T(model.ErrTagMalformedPayload))
	}
	root := gjson.ParseBytes(raw)

	facilityID := types.FacilityID(firstExisting(root, facilityIDPaths).String())
	if facilityID == "" {
		return nil, goerr.New("delta has no facility ID", goerr.T(model.ErrTagMalformedPayload))
	}

	ts, ok := parseTimestamp(firstExisting(root, timestampPaths))
	if !ok {
		return nil, goerr.New("delta has no timestamp",
			goerr.V("facility_id", facilityID),
			goerr.T(model.ErrTagMalformedPayload))
	}

	counts, err := readCounts(root, true)
	if err != nil {
		return nil, goerr.Wrap(err, "delta has invalid counts",
			goerr.V("facility_id", facilityID),
			goerr.T(model.ErrTagMalformedPayload))
	}
	if _, ok := counts[types.ClassUntriaged]; !ok {
		if r := firstExisting(root, untriagedPaths); r.Exists() {
			if r.Type != gjson.Number {
				return nil, goerr.New("delta has non-numeric untriaged count",
					goerr.V("facility_id", facilityID),
					goerr.V("value", r.Raw),
					goerr.T(model.ErrTagMalformedPayload))
			}
			counts[types.ClassUntriaged] = clampCount(r.Int())
		}
	}

	delta := &model.QueueDelta{
		FacilityID:  facilityID,
		Counts:      counts,
		WaitMinutes: readWaits(root),
		Timestamp:   ts,
	}
	if r := firstExisting(root, occupancyPaths); r.Exists() {
		status := parseOccupancy(r)
		delta.Occupancy = &status
	}
	return delta, nil
}

// readCounts reads classification counts in object form ({"azul": 5} or {"azul": {"quantidade": 5}})
// or array form ([{"classificacao": "AZUL", "quantidade": 5}]). Unknown classes are skipped.
// With strict set, a non-numeric count is an error; otherwise it is read as 0.
func readCounts(root gjson.Result, strict bool) (map[types.ClassificationCode]int, error) {
	counts := make(map[types.ClassificationCode]int)
	source := firstExisting(root, countsPaths)
	if !source.Exists() {
		// Flat payloads carry the class keys at the root
		source = root
	}

	var err error
	add := func(key string, value gjson.Result) bool {
		code, ok := model.ParseClassificationKey(key)
		if !ok {
			return true
		}
		if value.IsObject() {
			value = firstExisting(value, []string{"quantidade", "count", "total"})
		}
		if value.Type != gjson.Number {
			if strict {
				err = goerr.New("non-numeric classification count",
					goerr.V("class", key),
					goerr.V("value", value.Raw))
				return false
			}
			if _, seen := counts[code]; !seen {
				counts[code] = 0
			}
			return true
		}
		counts[code] += clampCount(value.Int())
		return true
	}

	switch {
	case source.IsArray():
		source.ForEach(func(_, item gjson.Result) bool {
			key := firstExisting(item, []string{"classificacao", "classification", "code"}).String()
			return add(key, item)
		})
	case source.IsObject():
		source.ForEach(func(key, value gjson.Result) bool {
			return add(key.String(), value)
		})
	}
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func readWaits(root gjson.Result) map[types.ClassificationCode]float64 {
	waits := make(map[types.ClassificationCode]float64)
	source := firstExisting(root, waitPaths)
	if source.IsObject() {
		source.ForEach(func(key, value gjson.Result) bool {
			if code, ok := model.ParseClassificationKey(key.String()); ok && value.Type == gjson.Number {
				waits[code] = clampWait(value.Float())
			}
			return true
		})
	}

	// Array form keeps the wait next to the count
	if counts := firstExisting(root, countsPaths); counts.IsArray() {
		counts.ForEach(func(_, item gjson.Result) bool {
			key := firstExisting(item, []string{"classificacao", "classification", "code"}).String()
			wait := firstExisting(item, waitPaths)
			if code, ok := model.ParseClassificationKey(key); ok && wait.Type == gjson.Number {
				waits[code] = clampWait(wait.Float())
			}
			return true
		})
	}
	return waits
}

func parseOccupancy(r gjson.Result) types.OccupancyStatus {
	if !r.Exists() {
		return types.OccupancyLow
	}
	if status, ok := occupancyLabels[strings.ToLower(strings.TrimSpace(r.String()))]; ok {
		return status
	}
	return types.OccupancyLow
}

// parseTimestamp accepts RFC 3339 strings and Unix epochs in seconds or milliseconds
func parseTimestamp(r gjson.Result) (time.Time, bool) {
	switch r.Type {
	case gjson.Number:
		n := r.Int()
		if n <= 0 {
			return time.Time{}, false
		}
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	case gjson.String:
		ts, err := time.Parse(time.RFC3339Nano, r.String())
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	default:
		return time.Time{}, false
	}
}

func clampCount(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

func clampWait(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
