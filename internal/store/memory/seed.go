package memory

import (
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
)

// seedUsers builds the demo staff accounts. PINs come from
// SEED_MANAGER_PIN, SEED_CASHIER_PIN and SEED_CHEF_PIN and fall back to
// dev defaults with a warning. The postgres store never uses these.
func seedUsers() map[string]domain.UserAccount {
	managerPIN := envOr("SEED_MANAGER_PIN", "1111")
	cashierPIN := envOr("SEED_CASHIER_PIN", "2222")
	chefPIN := envOr("SEED_CHEF_PIN", "3333")
	if os.Getenv("SEED_MANAGER_PIN") == "" || os.Getenv("SEED_CASHIER_PIN") == "" || os.Getenv("SEED_CHEF_PIN") == "" {
		log.Println("[memory-store] WARNING: using default dev PINs. Set SEED_MANAGER_PIN, SEED_CASHIER_PIN and SEED_CHEF_PIN to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		name     string
		pin      string
		role     string
	}{
		{"manager", "Restaurant Manager", managerPIN, domain.RoleManager},
		{"cashier", "Front Cashier", cashierPIN, domain.RoleCashier},
		{"chef", "Head Chef", chefPIN, domain.RoleChef},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.pin), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed PIN for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Name:      u.name,
			PIN:       string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func lot(stock float64, cost float64, at time.Time) []domain.PurchaseLot {
	return []domain.PurchaseLot{{Date: at, Quantity: stock, CostPerUnit: cost}}
}

// NewSeeded returns a store holding a small demo restaurant: a burger,
// fries and latte menu over seven ingredients, two prep tasks, two sales,
// one closed shift, a waste record and the monthly fixed expenses.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	monthAgo := now.AddDate(0, -1, 0)
	yesterday := now.AddDate(0, 0, -1)

	for _, sup := range []domain.Supplier{
		{ID: "sup1", Name: "Central Butcher", Category: "meat", PhoneNumber: "09120000001"},
		{ID: "sup2", Name: "Fresh Market", Category: "produce", PhoneNumber: "09120000002"},
	} {
		s.suppliers[sup.ID] = sup
	}

	for _, ing := range []domain.Ingredient{
		{ID: "ing1", Name: "Ground Beef", Unit: domain.UnitKilogram, CurrentStock: 25, CostPerUnit: 450000, MinThreshold: 10, SupplierID: "sup1"},
		{ID: "ing2", Name: "Burger Bun", Unit: domain.UnitNumber, CurrentStock: 100, CostPerUnit: 8000, MinThreshold: 40},
		{ID: "ing3", Name: "Cheddar Cheese", Unit: domain.UnitKilogram, CurrentStock: 3, CostPerUnit: 600000, MinThreshold: 1},
		{ID: "ing4", Name: "Tomato", Unit: domain.UnitKilogram, CurrentStock: 15, CostPerUnit: 25000, MinThreshold: 5, SupplierID: "sup2"},
		{ID: "ing5", Name: "Potato", Unit: domain.UnitKilogram, CurrentStock: 50, CostPerUnit: 18000, MinThreshold: 20, SupplierID: "sup2"},
		{ID: "ing6", Name: "Espresso Beans", Unit: domain.UnitKilogram, CurrentStock: 5, CostPerUnit: 900000, MinThreshold: 2},
		{ID: "ing7", Name: "Milk", Unit: domain.UnitLiter, CurrentStock: 10, CostPerUnit: 28000, MinThreshold: 5},
	} {
		ing.PurchaseHistory = lot(ing.CurrentStock, ing.CostPerUnit, monthAgo)
		s.ingredients[ing.ID] = ing
	}

	for _, task := range []domain.PrepTask{
		{ID: "prep1", Item: "Caramelized Onion", Station: "grill", ParLevel: 2, OnHand: 1.5, Unit: domain.UnitKilogram},
		{
			ID: "prep2", Item: "House Sauce", Station: "cold", ParLevel: 5, OnHand: 4, Unit: domain.UnitLiter,
			Recipe:      []domain.RecipeIngredient{{IngredientID: "ing4", Amount: 100, Unit: domain.UnitGram, Source: domain.SourceInventory}},
			BatchSize:   1,
			CostPerUnit: 50000,
		},
	} {
		s.prepTasks[task.ID] = task
	}

	for _, item := range []domain.MenuItem{
		{ID: "menu1", Name: "Classic Burger", Category: "burgers", Price: 180000, Recipe: []domain.RecipeIngredient{
			{IngredientID: "ing1", Amount: 150, Unit: domain.UnitGram, Source: domain.SourceInventory},
			{IngredientID: "ing2", Amount: 1, Unit: domain.UnitNumber, Source: domain.SourceInventory},
			{IngredientID: "ing3", Amount: 20, Unit: domain.UnitGram, Source: domain.SourceInventory},
			{IngredientID: "ing4", Amount: 30, Unit: domain.UnitGram, Source: domain.SourceInventory},
		}},
		{ID: "menu2", Name: "French Fries", Category: "sides", Price: 75000, Recipe: []domain.RecipeIngredient{
			{IngredientID: "ing5", Amount: 300, Unit: domain.UnitGram, Source: domain.SourceInventory},
		}},
		{ID: "menu3", Name: "Latte", Category: "drinks", Price: 85000, Recipe: []domain.RecipeIngredient{
			{IngredientID: "ing6", Amount: 18, Unit: domain.UnitGram, Source: domain.SourceInventory},
			{IngredientID: "ing7", Amount: 200, Unit: domain.UnitMilliliter, Source: domain.SourceInventory},
		}},
	} {
		s.menuItems[item.ID] = item
	}

	shiftStart := yesterday.Add(-8 * time.Hour)
	shift := domain.Shift{ID: "shift1", StartTime: shiftStart, StartingCash: 2000000, Status: domain.ShiftStatusOpen, OperatorName: "Front Cashier"}

	catalog := costing.NewCatalog(s.ingredientSlice(), s.prepTaskSlice())
	seedSales := []struct {
		id      string
		at      time.Time
		cart    []costing.CartLine
		payment domain.PaymentMethod
	}{
		{"sale1", yesterday.Add(-2 * time.Hour), []costing.CartLine{{Item: s.menuItems["menu1"], Quantity: 2}, {Item: s.menuItems["menu2"], Quantity: 1}}, domain.PaymentCash},
		{"sale2", yesterday.Add(-time.Hour), []costing.CartLine{{Item: s.menuItems["menu3"], Quantity: 2}}, domain.PaymentCard},
	}
	for _, seed := range seedSales {
		settled, err := costing.Settle(seed.cart, costing.SettleOptions{IncludeTax: true}, catalog)
		if err != nil {
			log.Fatalf("[memory-store] failed to settle seed sale %s: %v", seed.id, err)
		}
		sale := settled.Sale
		sale.ID = seed.id
		sale.Timestamp = seed.at
		sale.PaymentMethod = seed.payment
		sale.ShiftID = shift.ID
		sale.Status = domain.SaleStatusDelivered
		s.sales = append(s.sales, sale)
	}

	closed, err := costing.CloseShift(shift, s.sales, shift.StartingCash+s.sales[0].TotalAmount, 0, yesterday)
	if err != nil {
		log.Fatalf("[memory-store] failed to close seed shift: %v", err)
	}
	s.shifts = append(s.shifts, closed)

	tomato := s.ingredients["ing4"]
	s.waste = append(s.waste, domain.WasteRecord{
		ID:         "waste1",
		ItemID:     tomato.ID,
		ItemName:   tomato.Name,
		ItemSource: domain.SourceInventory,
		Amount:     0.5,
		Unit:       tomato.Unit,
		CostLoss:   costing.WasteLoss(0.5, tomato.CostPerUnit),
		Reason:     "spoiled",
		Date:       yesterday,
	})

	for _, exp := range []domain.Expense{
		{ID: "exp1", Title: "Monthly rent", Amount: 20000000, Category: domain.ExpenseRent, Date: monthAgo},
		{ID: "exp2", Title: "Kitchen salaries", Amount: 15000000, Category: domain.ExpenseSalary, Date: monthAgo},
	} {
		s.expenses[exp.ID] = exp
	}

	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) ingredientSlice() []domain.Ingredient {
	result := make([]domain.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		result = append(result, ing)
	}
	return result
}

func (s *Store) prepTaskSlice() []domain.PrepTask {
	result := make([]domain.PrepTask, 0, len(s.prepTasks))
	for _, task := range s.prepTasks {
		result = append(result, task)
	}
	return result
}
