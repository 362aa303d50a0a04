package service

import (
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"confighub/database"
	"confighub/database/model"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// StatService maintains the per-date delivery aggregates. Writers are
// serialized with a mutex because the read-modify-write on the location
// histogram is not atomic at the SQL level.
type StatService struct {
	mu sync.Mutex
}

// AdminStats is the snapshot rendered for the admin overview.
type AdminStats struct {
	Total     int64
	Pending   int64
	SentToday int64
	Today     *model.DailyStat
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// canonicalLocation reduces a stored location ("🇩🇪 Germany") to its bare
// name so flag glyphs do not split histogram buckets. Multi-word names
// ("Hong Kong") stay intact.
func canonicalLocation(location string) string {
	fields := stripFlag(strings.Fields(location))
	if len(fields) == 0 {
		return "Unknown"
	}
	return strings.Join(fields, " ")
}

// stripFlag drops a leading field that is not a word, which is how flag
// and cloud glyphs render.
func stripFlag(fields []string) []string {
	if len(fields) > 1 {
		r, _ := utf8.DecodeRuneInString(fields[0])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fields[1:]
		}
	}
	return fields
}

// IncrementDaily bumps today's delivery count and the location histogram.
func (s *StatService) IncrementDaily(location string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, err := s.loadOrCreate(dateKey(now))
	if err != nil {
		return err
	}

	histogram := map[string]int{}
	if stat.Locations != "" {
		if err := json.Unmarshal([]byte(stat.Locations), &histogram); err != nil {
			histogram = map[string]int{}
		}
	}
	histogram[canonicalLocation(location)]++

	encoded, err := json.Marshal(histogram)
	if err != nil {
		return err
	}

	return database.GetDB().Model(stat).Updates(map[string]any{
		"count":     stat.Count + 1,
		"locations": string(encoded),
	}).Error
}

func (s *StatService) IncrementCopy(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, err := s.loadOrCreate(dateKey(now))
	if err != nil {
		return err
	}
	return database.GetDB().Model(stat).
		UpdateColumn("copy_count", gorm.Expr("copy_count + 1")).Error
}

func (s *StatService) IncrementBadReport(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, err := s.loadOrCreate(dateKey(now))
	if err != nil {
		return err
	}
	return database.GetDB().Model(stat).
		UpdateColumn("bad_reports", gorm.Expr("bad_reports + 1")).Error
}

func (s *StatService) loadOrCreate(date string) (*model.DailyStat, error) {
	db := database.GetDB()
	var stat model.DailyStat
	err := db.Where("date = ?", date).First(&stat).Error
	if err == gorm.ErrRecordNotFound {
		stat = model.DailyStat{Date: date, Locations: "{}"}
		if err := db.Create(&stat).Error; err != nil {
			return nil, err
		}
		return &stat, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// GetDaily returns the aggregate for the given date, or a zero-valued stat
// when the date has no deliveries.
func (s *StatService) GetDaily(now time.Time) (*model.DailyStat, map[string]int, error) {
	var stat model.DailyStat
	err := database.GetDB().Where("date = ?", dateKey(now)).First(&stat).Error
	if err == gorm.ErrRecordNotFound {
		return &model.DailyStat{Date: dateKey(now), Locations: "{}"}, map[string]int{}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	histogram := map[string]int{}
	if stat.Locations != "" {
		if err := json.Unmarshal([]byte(stat.Locations), &histogram); err != nil {
			histogram = map[string]int{}
		}
	}
	return &stat, histogram, nil
}

// SentToday returns the number of deliveries recorded for the date. The
// counter is monotone within a day: retracting a config never frees its
// slot, which is what keeps the daily limit a hard cap.
func (s *StatService) SentToday(now time.Time) (int, error) {
	stat, _, err := s.GetDaily(now)
	if err != nil {
		return 0, err
	}
	return stat.Count, nil
}

// Overview assembles the admin stats snapshot.
func (s *StatService) Overview(configService *ConfigService, now time.Time) (*AdminStats, error) {
	total, err := configService.CountAll()
	if err != nil {
		return nil, err
	}
	pending, err := configService.CountPending()
	if err != nil {
		return nil, err
	}
	today, _, err := s.GetDaily(now)
	if err != nil {
		return nil, err
	}
	return &AdminStats{
		Total:     total,
		Pending:   pending,
		SentToday: int64(today.Count),
		Today:     today,
	}, nil
}
