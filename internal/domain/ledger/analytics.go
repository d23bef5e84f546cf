package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Time-slot boundaries, by hour of day.
const (
	slotMorningStart   = 6
	slotAfternoonStart = 12
	slotEveningStart   = 17
	slotNightStart     = 21
)

var (
	hundred = decimal.NewFromInt(100)

	timeSlotLabels = []string{"morning", "afternoon", "evening", "night"}
)

// RankedEntry is one row of a grouped breakdown, ordered by summed amount
type RankedEntry struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// SeriesPoint is one chart bucket of sales and expenses
type SeriesPoint struct {
	Label    string          `json:"label"`
	Start    time.Time       `json:"start"`
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
}

// Metrics is the full analytics bundle for one window.
// Every field is derived from the input transactions alone, so re-running
// the fold with the same input yields an identical bundle.
type Metrics struct {
	Window Window    `json:"window"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`

	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
	SalesGrowth   decimal.Decimal `json:"sales_growth"`
	ExpenseGrowth decimal.Decimal `json:"expense_growth"`

	SaleCount    int64           `json:"sale_count"`
	ExpenseCount int64           `json:"expense_count"`
	AverageSale  decimal.Decimal `json:"average_sale"`

	UniqueCustomers    int64           `json:"unique_customers"`
	RepeatCustomerRate decimal.Decimal `json:"repeat_customer_rate"`

	TopProducts          []RankedEntry `json:"top_products"`
	TopCustomers         []RankedEntry `json:"top_customers"`
	TopSuppliers         []RankedEntry `json:"top_suppliers"`
	TopExpenseCategories []RankedEntry `json:"top_expense_categories"`
	PaymentMethods       []RankedEntry `json:"payment_methods"`
	DaysOfWeek           []RankedEntry `json:"days_of_week"`
	TimeSlots            []RankedEntry `json:"time_slots"`

	Series []SeriesPoint `json:"series"`
}

// Aggregate folds transactions into the metrics bundle for the given window.
// The fold is pure: the input list is never mutated, and transactions outside
// [window start, now] are ignored. Growth percentages compare the half of the
// window after its midpoint against the half before it, and report 0 when the
// earlier half is empty. Top lists, payment methods included, keep the five
// largest sums; ties keep first-encountered order. Day-of-week and time-slot
// breakdowns always return every bucket.
func Aggregate(txs []Transaction, window Window, now time.Time) Metrics {
	start := window.Start(now)
	mid := Midpoint(start, now)

	m := Metrics{
		Window: window,
		Start:  start,
		End:    now,
	}

	products := newGrouping()
	customers := newGrouping()
	suppliers := newGrouping()
	categories := newGrouping()
	methods := newGrouping()

	days := newGrouping()
	for d := time.Sunday; d <= time.Saturday; d++ {
		days.seed(d.String())
	}
	slots := newGrouping()
	for _, label := range timeSlotLabels {
		slots.seed(label)
	}

	var recentSales, previousSales decimal.Decimal
	var recentExpenses, previousExpenses decimal.Decimal
	customerIDs := make(map[uuid.UUID]struct{})

	inWindow := make([]*Transaction, 0, len(txs))
	for i := range txs {
		t := &txs[i]
		if t.Date.Before(start) || t.Date.After(now) {
			continue
		}
		inWindow = append(inWindow, t)

		switch t.Type {
		case TransactionTypeSale:
			m.TotalSales = m.TotalSales.Add(t.Total)
			m.SaleCount++
			if t.Date.Before(mid) {
				previousSales = previousSales.Add(t.Total)
			} else {
				recentSales = recentSales.Add(t.Total)
			}

			if t.ContactID != nil {
				customerIDs[*t.ContactID] = struct{}{}
			}
			if t.ContactName != "" {
				customers.add(t.ContactName, t.Total, 1)
			}
			for _, item := range t.Items {
				products.add(item.Name, item.Subtotal, item.Quantity)
			}
			methods.add(string(t.PaymentMethod), t.Total, 1)
			days.add(t.Date.Weekday().String(), t.Total, 1)
			slots.add(timeSlotOf(t.Date), t.Total, 1)

		case TransactionTypeExpense:
			m.TotalExpenses = m.TotalExpenses.Add(t.Total)
			m.ExpenseCount++
			if t.Date.Before(mid) {
				previousExpenses = previousExpenses.Add(t.Total)
			} else {
				recentExpenses = recentExpenses.Add(t.Total)
			}

			if t.ContactName != "" {
				suppliers.add(t.ContactName, t.Total, 1)
			}
			category := t.Category
			if category == "" {
				category = "uncategorized"
			}
			categories.add(category, t.Total, 1)
		}
	}

	m.NetProfit = m.TotalSales.Sub(m.TotalExpenses)
	if !m.TotalSales.IsZero() {
		m.ProfitMargin = m.NetProfit.Div(m.TotalSales).Mul(hundred).Round(2)
	}
	m.SalesGrowth = growthPercent(recentSales, previousSales)
	m.ExpenseGrowth = growthPercent(recentExpenses, previousExpenses)

	if m.SaleCount > 0 {
		m.AverageSale = m.TotalSales.Div(decimal.NewFromInt(m.SaleCount)).Round(2)
	}

	m.UniqueCustomers = int64(len(customerIDs))
	if m.SaleCount > 0 {
		m.RepeatCustomerRate = decimal.NewFromInt(m.UniqueCustomers).
			Div(decimal.NewFromInt(m.SaleCount)).Mul(hundred).Round(2)
	}

	m.TopProducts = products.ranked(5)
	m.TopCustomers = customers.ranked(5)
	m.TopSuppliers = suppliers.ranked(5)
	m.TopExpenseCategories = categories.ranked(5)
	m.PaymentMethods = methods.ranked(5)
	m.DaysOfWeek = days.ranked(0)
	m.TimeSlots = slots.ranked(0)

	m.Series = buildSeries(inWindow, window, start, now)

	return m
}

// growthPercent compares the later half of a window against the earlier half.
// An empty earlier half reports 0 rather than dividing by zero.
func growthPercent(recent, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return recent.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// timeSlotOf buckets an instant into morning, afternoon, evening, or night
func timeSlotOf(t time.Time) string {
	switch h := t.Hour(); {
	case h >= slotMorningStart && h < slotAfternoonStart:
		return "morning"
	case h >= slotAfternoonStart && h < slotEveningStart:
		return "afternoon"
	case h >= slotEveningStart && h < slotNightStart:
		return "evening"
	default:
		return "night"
	}
}

// grouping accumulates sums per key while remembering insertion order, so
// equal sums rank in first-encountered order after the stable sort.
type grouping struct {
	order   []string
	amounts map[string]decimal.Decimal
	counts  map[string]int64
}

func newGrouping() *grouping {
	return &grouping{
		amounts: make(map[string]decimal.Decimal),
		counts:  make(map[string]int64),
	}
}

// seed registers a key with a zero sum so it appears even without data
func (g *grouping) seed(key string) {
	if _, ok := g.amounts[key]; !ok {
		g.order = append(g.order, key)
		g.amounts[key] = decimal.Zero
	}
}

func (g *grouping) add(key string, amount decimal.Decimal, count int64) {
	if _, ok := g.amounts[key]; !ok {
		g.order = append(g.order, key)
		g.amounts[key] = decimal.Zero
	}
	g.amounts[key] = g.amounts[key].Add(amount)
	g.counts[key] += count
}

// ranked returns entries sorted descending by amount. topN > 0 truncates;
// 0 returns every bucket.
func (g *grouping) ranked(topN int) []RankedEntry {
	entries := make([]RankedEntry, 0, len(g.order))
	for _, key := range g.order {
		entries = append(entries, RankedEntry{
			Key:    key,
			Amount: g.amounts[key],
			Count:  g.counts[key],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Amount.GreaterThan(entries[j].Amount)
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}

// seriesDailyMaxDays is the longest span charted day by day; anything longer
// falls back to monthly buckets.
const seriesDailyMaxDays = 93

// buildSeries produces the chart buckets for the window. Bounded windows span
// [start, end]; ALL spans from the earliest transaction, since the epoch
// would chart decades of empty buckets.
func buildSeries(txs []*Transaction, window Window, start, end time.Time) []SeriesPoint {
	seriesStart := start
	if window == WindowAllTime {
		if len(txs) == 0 {
			return []SeriesPoint{}
		}
		seriesStart = txs[0].Date
		for _, t := range txs[1:] {
			if t.Date.Before(seriesStart) {
				seriesStart = t.Date
			}
		}
	}

	daily := end.Sub(seriesStart).Hours()/24 <= seriesDailyMaxDays

	var labelFormat string
	var bucketOf func(time.Time) time.Time
	var next func(time.Time) time.Time
	if daily {
		labelFormat = "2006-01-02"
		bucketOf = startOfDay
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	} else {
		labelFormat = "2006-01"
		bucketOf = startOfMonth
		next = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	}

	series := make([]SeriesPoint, 0)
	index := make(map[string]int)
	last := bucketOf(end)
	for b := bucketOf(seriesStart); !b.After(last); b = next(b) {
		label := b.Format(labelFormat)
		index[label] = len(series)
		series = append(series, SeriesPoint{Label: label, Start: b})
	}

	for _, t := range txs {
		i, ok := index[bucketOf(t.Date).Format(labelFormat)]
		if !ok {
			continue
		}
		switch t.Type {
		case TransactionTypeSale:
			series[i].Sales = series[i].Sales.Add(t.Total)
		case TransactionTypeExpense:
			series[i].Expenses = series[i].Expenses.Add(t.Total)
		}
	}

	return series
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
