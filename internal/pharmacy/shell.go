package pharmacy

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTab is shown when no tab is requested.
	DefaultTab = KindMedicines
	// MaxSearchLength bounds the search string in characters.
	MaxSearchLength = 100
	// DefaultFetchBudget bounds how long the dashboard waits for data.
	DefaultFetchBudget = 2 * time.Second
)

var (
	// ErrUnknownTab is returned for a tab outside Kinds.
	ErrUnknownTab = errors.New("pharmacy: unknown tab")
	// ErrSearchTooLong is returned for a search string over MaxSearchLength.
	ErrSearchTooLong = errors.New("pharmacy: search too long")
)

// ShellQuery is the raw dashboard query string.
type ShellQuery struct {
	Tab    string `validate:"omitempty,oneof=medicines suppliers purchases sales"`
	Search string `validate:"max=100"`
}

// ShellState is the dashboard state owned by the shell.
type ShellState struct {
	ActiveTab Kind
	Search    string
}

// ParseShellQuery validates the tab and q parameters. On ErrUnknownTab the
// returned state carries the default tab and the search string.
func ParseShellQuery(values url.Values) (ShellState, error) {
	q := ShellQuery{Tab: strings.TrimSpace(values.Get("tab")), Search: values.Get("q")}
	state := ShellState{ActiveTab: DefaultTab, Search: q.Search}
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return ShellState{}, err
		}
		tabInvalid := false
		for _, fe := range verrs {
			switch fe.Field() {
			case "Search":
				return ShellState{}, ErrSearchTooLong
			case "Tab":
				tabInvalid = true
			}
		}
		if tabInvalid {
			return state, ErrUnknownTab
		}
	}
	if q.Tab != "" {
		state.ActiveTab = Kind(q.Tab)
	}
	return state, nil
}

// CountCard is one dashboard count. Ready is false while the count is still
// loading.
type CountCard struct {
	Kind  Kind
	Label string
	Value int
	Ready bool
}

var countLabels = map[Kind]string{
	KindMedicines: "Total Medicines",
	KindSuppliers: "Suppliers",
	KindPurchases: "Recent Purchases",
	KindSales:     "Recent Sales",
}

// TabLink is one entry of the tab selector.
type TabLink struct {
	Kind   Kind
	Label  string
	Active bool
}

var tabLabels = map[Kind]string{
	KindMedicines: "Medicines",
	KindSuppliers: "Suppliers",
	KindPurchases: "Purchases",
	KindSales:     "Sales",
}

// Dashboard is the render-ready shell.
type Dashboard struct {
	State  ShellState
	Tabs   []TabLink
	Counts []CountCard
	Table  TableModel
	Alerts *AlertSnapshot
}

// ShellConfig collects Shell dependencies.
type ShellConfig struct {
	Source Source
	Alerts AlertReader
	Logger *slog.Logger
	Budget time.Duration
	Today  func() time.Time
}

// Shell composes the count cards, tab selector and active table.
type Shell struct {
	source Source
	alerts AlertReader
	logger *slog.Logger
	budget time.Duration
	today  func() time.Time
}

// NewShell builds a Shell with defaults for unset fields.
func NewShell(cfg ShellConfig) *Shell {
	s := &Shell{
		source: cfg.Source,
		alerts: cfg.Alerts,
		logger: cfg.Logger,
		budget: cfg.Budget,
		today:  cfg.Today,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.budget <= 0 {
		s.budget = DefaultFetchBudget
	}
	if s.today == nil {
		s.today = time.Now
	}
	return s
}

// Table builds a fresh view for the collection.
func (s *Shell) Table(kind Kind) (Table, error) {
	return NewTable(kind, s.source, s.today)
}

// Mount renders one dashboard cycle: counts, active table and alerts load
// concurrently within the fetch budget.
func (s *Shell) Mount(ctx context.Context, state ShellState) (Dashboard, error) {
	table, err := s.Table(state.ActiveTab)
	if err != nil {
		return Dashboard{}, err
	}
	table.SetQuery(state.Search)

	dash := Dashboard{State: state, Tabs: tabs(state.ActiveTab)}

	var g errgroup.Group
	g.Go(func() error {
		dash.Counts = s.Counts(ctx)
		return nil
	})
	g.Go(func() error {
		loadCtx, cancel := context.WithTimeout(ctx, s.budget)
		defer cancel()
		table.Load(loadCtx)
		return nil
	})
	if s.alerts != nil {
		g.Go(func() error {
			alertCtx, cancel := context.WithTimeout(ctx, s.budget)
			defer cancel()
			snap, err := s.alerts.Latest(alertCtx)
			if err != nil {
				s.logger.Warn("load stock alerts", slog.Any("error", err))
				return nil
			}
			dash.Alerts = snap
			return nil
		})
	}
	_ = g.Wait()

	dash.Table = table.Model()
	return dash, nil
}

type countResult struct {
	kind  Kind
	value int
}

// Counts fetches the four collections independently. Counts not resolved
// within the budget are returned with Ready false and their late results are
// discarded.
func (s *Shell) Counts(ctx context.Context) []CountCard {
	results := make(chan countResult, len(Kinds))
	for _, kind := range Kinds {
		go func(kind Kind) {
			results <- countResult{kind: kind, value: s.count(ctx, kind)}
		}(kind)
	}

	resolved := make(map[Kind]int, len(Kinds))
	timer := time.NewTimer(s.budget)
	defer timer.Stop()
collect:
	for len(resolved) < len(Kinds) {
		select {
		case res := <-results:
			resolved[res.kind] = res.value
		case <-timer.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	cards := make([]CountCard, 0, len(Kinds))
	for _, kind := range Kinds {
		value, ok := resolved[kind]
		cards = append(cards, CountCard{Kind: kind, Label: countLabels[kind], Value: value, Ready: ok})
	}
	return cards
}

func (s *Shell) count(ctx context.Context, kind Kind) int {
	switch kind {
	case KindMedicines:
		return len(s.source.GetMedicines(ctx))
	case KindSuppliers:
		return len(s.source.GetSuppliers(ctx))
	case KindPurchases:
		return len(s.source.GetPurchases(ctx))
	case KindSales:
		return len(s.source.GetSales(ctx))
	}
	return 0
}

func tabs(active Kind) []TabLink {
	links := make([]TabLink, 0, len(Kinds))
	for _, kind := range Kinds {
		links = append(links, TabLink{Kind: kind, Label: tabLabels[kind], Active: kind == active})
	}
	return links
}
