package inventory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MigzCtrl/TireOps-sub000/internal/store"
)

// Candidate is one unverified inventory row extracted from an uploaded file.
type Candidate struct {
	Brand    string  `json:"brand"`
	Model    string  `json:"model"`
	Size     string  `json:"size"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CommitMode is the user's explicit choice after a duplicate warning.
type CommitMode string

const (
	// ModeAdd inserts every valid candidate as a new row, ignoring key
	// collisions entirely.
	ModeAdd CommitMode = "add"
	// ModeMerge folds key collisions into the persisted row (quantity
	// added, price replaced) and inserts the rest as new.
	ModeMerge CommitMode = "merge"
)

var keyWhitespace = regexp.MustCompile(`\s+`)

// NormalizeKey builds the composite brand+size key used for duplicate
// detection. It is compared, never stored.
func NormalizeKey(brand, size string) string {
	b := strings.ToLower(strings.TrimSpace(brand))
	s := keyWhitespace.ReplaceAllString(strings.ToLower(size), "")
	return b + "|" + s
}

// Valid reports whether the candidate carries enough identity to persist.
func (c Candidate) Valid() bool {
	return strings.TrimSpace(c.Brand) != "" && strings.TrimSpace(c.Size) != ""
}

// FindDuplicates reports whether any candidate collides with a persisted row
// and collects human-readable labels for the duplicate warning dialog.
func FindDuplicates(candidates []Candidate, persisted []store.InventoryItem) (bool, []string) {
	keys := make(map[string]struct{}, len(persisted))
	for _, item := range persisted {
		keys[NormalizeKey(item.Brand, item.Size)] = struct{}{}
	}

	var labels []string
	for _, cand := range candidates {
		if !cand.Valid() {
			continue
		}
		if _, ok := keys[NormalizeKey(cand.Brand, cand.Size)]; ok {
			labels = append(labels, fmt.Sprintf("%s %s", strings.TrimSpace(cand.Brand), strings.TrimSpace(cand.Size)))
		}
	}
	return len(labels) > 0, labels
}

// Update carries the final values for one persisted row touched by a merge.
type Update struct {
	ItemID   uint
	Quantity int
	Price    float64
}

// Plan partitions merge-mode candidates into rows to update and rows to
// insert.
type Plan struct {
	ToUpdate []Update
	ToInsert []Candidate
}

// BuildMergePlan matches valid candidates against persisted rows by
// composite key. Matched candidates add their quantity onto the persisted
// row and replace its price; several candidates sharing one key stack onto
// the same update. Unmatched candidates are inserted as new rows.
func BuildMergePlan(candidates []Candidate, persisted []store.InventoryItem) Plan {
	byKey := make(map[string]*store.InventoryItem, len(persisted))
	for i := range persisted {
		key := NormalizeKey(persisted[i].Brand, persisted[i].Size)
		if _, ok := byKey[key]; !ok {
			byKey[key] = &persisted[i]
		}
	}

	var plan Plan
	pending := make(map[uint]int) // item id -> index into plan.ToUpdate
	for _, cand := range candidates {
		if !cand.Valid() {
			continue
		}
		item, ok := byKey[NormalizeKey(cand.Brand, cand.Size)]
		if !ok {
			plan.ToInsert = append(plan.ToInsert, cand)
			continue
		}
		if idx, seen := pending[item.ID]; seen {
			plan.ToUpdate[idx].Quantity += cand.Quantity
			plan.ToUpdate[idx].Price = cand.Price
			continue
		}
		plan.ToUpdate = append(plan.ToUpdate, Update{
			ItemID:   item.ID,
			Quantity: item.Quantity + cand.Quantity,
			Price:    cand.Price,
		})
		pending[item.ID] = len(plan.ToUpdate) - 1
	}
	return plan
}

// CommitSummary aggregates per-row outcomes of a commit. Individual row
// failures are logged, not surfaced.
type CommitSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Reconciler applies inventory commits against the persisted rows of a shop.
type Reconciler struct {
	db *store.Database
}

// NewReconciler constructs a reconciler over the shop inventory store.
func NewReconciler(db *store.Database) *Reconciler {
	return &Reconciler{db: db}
}

// CheckForDuplicates loads the shop's persisted rows and reports collisions.
func (r *Reconciler) CheckForDuplicates(shopID uint, candidates []Candidate) (bool, []string, error) {
	persisted, err := r.db.ListInventoryItems(shopID)
	if err != nil {
		return false, nil, fmt.Errorf("list inventory: %w", err)
	}
	has, labels := FindDuplicates(candidates, persisted)
	return has, labels, nil
}

// Commit persists candidates under the chosen mode. Merge mode applies
// updates and inserts independently, row by row, with no cross-row
// transaction: a failure partway through leaves prior rows committed.
func (r *Reconciler) Commit(shopID uint, candidates []Candidate, mode CommitMode) (CommitSummary, error) {
	var summary CommitSummary

	valid := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Valid() {
			valid = append(valid, cand)
		}
	}
	if len(valid) == 0 {
		return summary, fmt.Errorf("no valid inventory candidates")
	}

	switch mode {
	case ModeAdd:
		items := make([]store.InventoryItem, 0, len(valid))
		for _, cand := range valid {
			items = append(items, candidateToItem(shopID, cand))
		}
		if err := r.db.CreateInventoryItems(items); err != nil {
			return summary, fmt.Errorf("insert inventory: %w", err)
		}
		summary.Inserted = len(items)
		return summary, nil

	case ModeMerge:
		persisted, err := r.db.ListInventoryItems(shopID)
		if err != nil {
			return summary, fmt.Errorf("list inventory: %w", err)
		}
		plan := BuildMergePlan(valid, persisted)

		for _, update := range plan.ToUpdate {
			if err := r.db.UpdateInventoryItem(update.ItemID, update.Quantity, update.Price); err != nil {
				summary.Failed++
				logrus.WithError(err).WithField("item_id", update.ItemID).Warn("merge inventory row")
				continue
			}
			summary.Updated++
		}
		for _, cand := range plan.ToInsert {
			item := candidateToItem(shopID, cand)
			if err := r.db.CreateInventoryItem(&item); err != nil {
				summary.Failed++
				logrus.WithError(err).WithFields(logrus.Fields{
					"brand": cand.Brand,
					"size":  cand.Size,
				}).Warn("insert inventory row")
				continue
			}
			summary.Inserted++
		}
		return summary, nil

	default:
		return summary, fmt.Errorf("unknown commit mode %q", mode)
	}
}

func candidateToItem(shopID uint, cand Candidate) store.InventoryItem {
	return store.InventoryItem{
		ShopID:   shopID,
		Brand:    strings.TrimSpace(cand.Brand),
		Model:    strings.TrimSpace(cand.Model),
		Size:     strings.TrimSpace(cand.Size),
		Quantity: cand.Quantity,
		Price:    cand.Price,
	}
}
