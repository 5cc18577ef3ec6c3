package admin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/orders"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Auditor reports drift between the order collections. It never writes.
type Auditor struct {
	store  db.Store
	orders *orders.Service
	logger *zap.Logger
	// Addresses and payments younger than Grace may still be waiting for
	// their back-patch and are not reported as orphans.
	Grace time.Duration
	now   func() time.Time
}

func NewAuditor(store db.Store, ords *orders.Service, logger *zap.Logger) *Auditor {
	return &Auditor{store: store, orders: ords, logger: logger, Grace: 5 * time.Minute, now: time.Now}
}

// Ref is an order pointing at something that is not there.
type Ref struct {
	OrderID string `json:"orderId"`
	Ref     string `json:"ref"`
}

// Divergence is an order whose two status fields disagree.
type Divergence struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	OrderStatus string `json:"orderStatus"`
}

// Report is the result of one audit pass.
type Report struct {
	ScannedOrders     int                 `json:"scannedOrders"`
	UnresolvedAddress []Ref               `json:"unresolvedAddress"`
	UnresolvedPayment []Ref               `json:"unresolvedPayment"`
	OrphanAddresses   []string            `json:"orphanAddresses"`
	OrphanPayments    []string            `json:"orphanPayments"`
	MissingMirror     []string            `json:"missingMirror"`
	MissingTracking   []string            `json:"missingTracking"`
	DuplicateTracking map[string][]string `json:"duplicateTracking"`
	StatusDivergence  []Divergence        `json:"statusDivergence"`
	GeneratedAt       time.Time           `json:"generatedAt"`
}

// Clean reports whether no drift was found.
func (r *Report) Clean() bool {
	return len(r.UnresolvedAddress) == 0 && len(r.UnresolvedPayment) == 0 &&
		len(r.OrphanAddresses) == 0 && len(r.OrphanPayments) == 0 &&
		len(r.MissingMirror) == 0 && len(r.MissingTracking) == 0 &&
		len(r.DuplicateTracking) == 0 && len(r.StatusDivergence) == 0
}

// Issues counts every finding in the report.
func (r *Report) Issues() int {
	n := len(r.UnresolvedAddress) + len(r.UnresolvedPayment) + len(r.OrphanAddresses) +
		len(r.OrphanPayments) + len(r.MissingMirror) + len(r.MissingTracking) + len(r.StatusDivergence)
	for _, ids := range r.DuplicateTracking {
		n += len(ids)
	}
	return n
}

func (a *Auditor) all(ctx context.Context, coll string, out any) error {
	if err := a.store.Find(ctx, coll, bson.M{}, db.FindOptions{SortField: "createdAt"}, out); err != nil {
		return fmt.Errorf("scan %s: %w", coll, err)
	}
	return nil
}

// Run scans orders, addresses, payments, shopOrders and deliveryTracking.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	var (
		ords      []models.Order
		addrs     []models.Address
		pays      []models.Payment
		mirrors   []models.ShopOrder
		trackings []models.DeliveryTracking
	)
	if err := a.all(ctx, db.Orders, &ords); err != nil {
		return nil, err
	}
	if err := a.all(ctx, db.Addresses, &addrs); err != nil {
		return nil, err
	}
	if err := a.all(ctx, db.Payments, &pays); err != nil {
		return nil, err
	}
	if err := a.all(ctx, db.ShopOrders, &mirrors); err != nil {
		return nil, err
	}
	if err := a.all(ctx, db.DeliveryTracking, &trackings); err != nil {
		return nil, err
	}

	now := a.now().UTC()
	rep := &Report{
		ScannedOrders:     len(ords),
		UnresolvedAddress: []Ref{},
		UnresolvedPayment: []Ref{},
		OrphanAddresses:   []string{},
		OrphanPayments:    []string{},
		MissingMirror:     []string{},
		MissingTracking:   []string{},
		DuplicateTracking: map[string][]string{},
		StatusDivergence:  []Divergence{},
		GeneratedAt:       now,
	}

	addrByID := make(map[string]bool, len(addrs))
	for _, ad := range addrs {
		addrByID[ad.ID] = true
		if ad.OrderID == "" && now.Sub(ad.CreatedAt) > a.Grace {
			rep.OrphanAddresses = append(rep.OrphanAddresses, ad.ID)
		}
	}
	payByID := make(map[string]bool, len(pays))
	for _, p := range pays {
		payByID[p.ID] = true
		if p.OrderID == "" && now.Sub(p.CreatedAt) > a.Grace {
			rep.OrphanPayments = append(rep.OrphanPayments, p.ID)
		}
	}
	mirrored := make(map[string]bool, len(mirrors))
	for _, m := range mirrors {
		mirrored[m.AsOrder().ID] = true
	}
	tracked := make(map[string]bool, len(trackings))
	for _, t := range trackings {
		tracked[t.OrderID] = true
	}

	byTracking := make(map[string][]string)
	for _, o := range ords {
		if o.AddressID == "" || !addrByID[o.AddressID] {
			rep.UnresolvedAddress = append(rep.UnresolvedAddress, Ref{OrderID: o.ID, Ref: o.AddressID})
		}
		if o.PaymentID == "" || !payByID[o.PaymentID] {
			rep.UnresolvedPayment = append(rep.UnresolvedPayment, Ref{OrderID: o.ID, Ref: o.PaymentID})
		}
		if !mirrored[o.ID] {
			rep.MissingMirror = append(rep.MissingMirror, o.ID)
		}
		if !tracked[o.ID] {
			rep.MissingTracking = append(rep.MissingTracking, o.ID)
		}
		if o.Status != o.OrderStatus {
			rep.StatusDivergence = append(rep.StatusDivergence, Divergence{OrderID: o.ID, Status: o.Status, OrderStatus: o.OrderStatus})
		}
		if o.TrackingID != "" {
			byTracking[o.TrackingID] = append(byTracking[o.TrackingID], o.ID)
		}
	}
	for tid, ids := range byTracking {
		if len(ids) > 1 {
			sort.Strings(ids)
			rep.DuplicateTracking[tid] = ids
		}
	}

	a.logger.Info("audit finished",
		zap.Int("orders", rep.ScannedOrders),
		zap.Int("issues", rep.Issues()))
	return rep, nil
}

// DebugView puts a user's raw order documents next to what the read path
// makes of them.
type DebugView struct {
	Orders     []models.Order     `json:"orders"`
	ShopOrders []models.ShopOrder `json:"shopOrders"`
	Reconciled []models.Order     `json:"reconciled"`
}

// DebugOrders returns the raw and reconciled orders of userID.
func (a *Auditor) DebugOrders(ctx context.Context, userID string) (*DebugView, error) {
	primary, mirrors, err := a.orders.FetchRaw(ctx, userID)
	if err != nil {
		return nil, err
	}
	asOrders := make([]models.Order, 0, len(mirrors))
	for _, m := range mirrors {
		asOrders = append(asOrders, m.AsOrder())
	}
	if primary == nil {
		primary = []models.Order{}
	}
	if mirrors == nil {
		mirrors = []models.ShopOrder{}
	}
	return &DebugView{
		Orders:     primary,
		ShopOrders: mirrors,
		Reconciled: orders.Reconcile(userID, primary, asOrders),
	}, nil
}
