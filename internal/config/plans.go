package config

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Plan is a static feature/limit bundle. Zero-valued limits mean unlimited.
type Plan struct {
	Slug              string `mapstructure:"slug"`
	Name              string `mapstructure:"name"`
	MonthlyPrice      int64  `mapstructure:"monthlyPrice"`
	MaxOrdersPerMonth int    `mapstructure:"maxOrdersPerMonth"`
	MaxDeliveryZones  int    `mapstructure:"maxDeliveryZones"`
	AnalyticsPerMonth int    `mapstructure:"analyticsPerMonth"`
	AIEnabled         bool   `mapstructure:"aiEnabled"`
	Analytics         bool   `mapstructure:"analytics"`
	PrioritySupport   bool   `mapstructure:"prioritySupport"`
}

// PlanBook is the ordered plan catalog plus the slug granted on trial.
type PlanBook struct {
	Plans    []Plan `mapstructure:"plans"`
	TrialOf  string `mapstructure:"trialOf"`
	TrialDay int    `mapstructure:"trialDays"`
}

// Find returns the plan with the given slug, case-insensitive.
func (b PlanBook) Find(slug string) (Plan, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, p := range b.Plans {
		if p.Slug == slug {
			return p, true
		}
	}
	return Plan{}, false
}

func DefaultPlanBook() PlanBook {
	return PlanBook{
		Plans: []Plan{
			{
				Slug:              "basico",
				Name:              "Básico",
				MonthlyPrice:      10000,
				MaxOrdersPerMonth: 150,
				MaxDeliveryZones:  3,
			},
			{
				Slug:              "intermedio",
				Name:              "Intermedio",
				MonthlyPrice:      20000,
				MaxOrdersPerMonth: 500,
				MaxDeliveryZones:  10,
				AnalyticsPerMonth: 30,
				AIEnabled:         true,
				Analytics:         true,
			},
			{
				Slug:              "pro",
				Name:              "Pro",
				MonthlyPrice:      35000,
				MaxDeliveryZones:  50,
				AnalyticsPerMonth: 200,
				AIEnabled:         true,
				Analytics:         true,
				PrioritySupport:   true,
			},
		},
		TrialOf:  "intermedio",
		TrialDay: 30,
	}
}

// PlanBookHolder serves the current plan catalog and hot-reloads it when the
// backing file changes. Reads are lock-free.
type PlanBookHolder struct {
	current atomic.Value // holds PlanBook
}

func NewPlanBookHolder(cfg Config) (*PlanBookHolder, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if path := strings.TrimSpace(cfg.PlansFile); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("plans")
		v.AddConfigPath("/var/lib/ordena/config")
		v.AddConfigPath("/etc/ordena")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ORDENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Search-path misses report ConfigFileNotFoundError; a pinned file
		// that does not exist yet reports fs.ErrNotExist. Both fall back to
		// the built-in catalog.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		defaults := DefaultPlanBook()
		v.SetDefault("plans", defaults.Plans)
		v.SetDefault("trialOf", defaults.TrialOf)
		v.SetDefault("trialDays", defaults.TrialDay)
	}

	book, err := unmarshalPlanBook(v)
	if err != nil {
		return nil, err
	}

	holder := &PlanBookHolder{}
	holder.current.Store(book)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalPlanBook(v)
		if err != nil {
			log.Printf("[plans-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plans-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PlanBookHolder) Get() PlanBook {
	return h.current.Load().(PlanBook)
}

// NewStaticPlanBookHolder wraps a fixed catalog, for tests.
func NewStaticPlanBookHolder(book PlanBook) *PlanBookHolder {
	holder := &PlanBookHolder{}
	holder.current.Store(book)
	return holder
}

func unmarshalPlanBook(v *viper.Viper) (PlanBook, error) {
	var book PlanBook
	if err := v.Unmarshal(&book); err != nil {
		return PlanBook{}, err
	}
	if err := validatePlanBook(book); err != nil {
		return PlanBook{}, err
	}
	for i := range book.Plans {
		book.Plans[i].Slug = strings.ToLower(strings.TrimSpace(book.Plans[i].Slug))
	}
	return book, nil
}

func validatePlanBook(book PlanBook) error {
	if len(book.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	seen := map[string]bool{}
	for _, p := range book.Plans {
		slug := strings.ToLower(strings.TrimSpace(p.Slug))
		if slug == "" {
			return errors.New("plan slug cannot be empty")
		}
		if seen[slug] {
			return errors.New("duplicate plan slug: " + slug)
		}
		seen[slug] = true
	}
	if _, ok := book.Find(book.TrialOf); book.TrialOf != "" && !ok {
		return errors.New("trialOf references unknown plan: " + book.TrialOf)
	}
	return nil
}
