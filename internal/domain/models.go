package domain

import "time"

type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "gram"
	UnitLiter      Unit = "liter"
	UnitMilliliter Unit = "ml"
	UnitCC         Unit = "cc"
	UnitNumber     Unit = "number"
	UnitPack       Unit = "pack"
	UnitCan        Unit = "can"
	UnitPortion    Unit = "portion"
)

type RecipeSource string

const (
	SourceInventory RecipeSource = "inventory"
	SourcePrep      RecipeSource = "prep"
)

type PurchaseLot struct {
	Date        time.Time `json:"date"`
	Quantity    float64   `json:"quantity"`
	CostPerUnit float64   `json:"cost_per_unit"`
}

type Ingredient struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Unit            Unit          `json:"unit"`
	CurrentStock    float64       `json:"current_stock"`
	CostPerUnit     float64       `json:"cost_per_unit"`
	MinThreshold    float64       `json:"min_threshold"`
	SupplierID      string        `json:"supplier_id,omitempty"`
	PurchaseHistory []PurchaseLot `json:"purchase_history"`
}

func (i Ingredient) LowStock() bool {
	return i.CurrentStock <= i.MinThreshold
}

// RecipeIngredient is one line of a menu item or prep task recipe. An empty
// Source means inventory.
type RecipeIngredient struct {
	IngredientID string       `json:"ingredient_id"`
	Amount       float64      `json:"amount"`
	Unit         Unit         `json:"unit"`
	Source       RecipeSource `json:"source,omitempty"`
}

func (r RecipeIngredient) FromPrep() bool {
	return r.Source == SourcePrep
}

type PrepTask struct {
	ID          string             `json:"id"`
	Item        string             `json:"item"`
	Station     string             `json:"station"`
	ParLevel    float64            `json:"par_level"`
	OnHand      float64            `json:"on_hand"`
	Unit        Unit               `json:"unit"`
	Recipe      []RecipeIngredient `json:"recipe,omitempty"`
	BatchSize   float64            `json:"batch_size,omitempty"`
	CostPerUnit float64            `json:"cost_per_unit,omitempty"`
}

func (p PrepTask) Shortfall() float64 {
	if p.OnHand >= p.ParLevel {
		return 0
	}
	return p.ParLevel - p.OnHand
}

type MenuItem struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Price    float64            `json:"price"`
	Recipe   []RecipeIngredient `json:"recipe"`
	ImageURL string             `json:"image_url,omitempty"`
}

// MenuItemView carries the live cost of a menu item. Cost is never stored.
type MenuItemView struct {
	MenuItem
	Cost          float64 `json:"cost"`
	Margin        float64 `json:"margin"`
	MarginPercent float64 `json:"margin_percent"`
}

type CostLine struct {
	IngredientID string       `json:"ingredient_id"`
	Name         string       `json:"name"`
	Source       RecipeSource `json:"source"`
	Amount       float64      `json:"amount"`
	Unit         Unit         `json:"unit"`
	Cost         float64      `json:"cost"`
	Missing      bool         `json:"missing,omitempty"`
}

type CostBreakdown struct {
	MenuItemID string     `json:"menu_item_id"`
	Lines      []CostLine `json:"lines"`
	Total      float64    `json:"total"`
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
	PaymentVoid   PaymentMethod = "void"
)

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPreparing SaleStatus = "preparing"
	SaleStatusReady     SaleStatus = "ready"
	SaleStatusDelivered SaleStatus = "delivered"
)

type SaleItem struct {
	MenuItemID  string  `json:"menu_item_id"`
	Name        string  `json:"name,omitempty"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"price_at_sale"`
	CostAtSale  float64 `json:"cost_at_sale"`
}

type Sale struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	Items         []SaleItem    `json:"items"`
	TotalAmount   float64       `json:"total_amount"`
	TotalCost     float64       `json:"total_cost"`
	Tax           float64       `json:"tax"`
	Discount      float64       `json:"discount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	ShiftID       string        `json:"shift_id,omitempty"`
	TableNumber   string        `json:"table_number,omitempty"`
	Status        SaleStatus    `json:"status"`
}

type DiscountType string

const (
	DiscountAmount  DiscountType = "amount"
	DiscountPercent DiscountType = "percent"
)

type CartItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type CheckoutRequest struct {
	CartItems     []CartItem    `json:"cart_items"`
	Discount      float64       `json:"discount"`
	DiscountType  DiscountType  `json:"discount_type"`
	IncludeTax    bool          `json:"include_tax"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TableNumber   string        `json:"table_number,omitempty"`
	ManagerPIN    string        `json:"manager_pin,omitempty"`
}

type CheckoutResponse struct {
	Sale     Sale    `json:"sale"`
	Subtotal float64 `json:"subtotal"`
	Profit   float64 `json:"profit"`
}

type SaleStatusRequest struct {
	Status SaleStatus `json:"status"`
}

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "open"
	ShiftStatusClosed ShiftStatus = "closed"
)

type Shift struct {
	ID                string      `json:"id"`
	StartTime         time.Time   `json:"start_time"`
	EndTime           *time.Time  `json:"end_time,omitempty"`
	StartingCash      float64     `json:"starting_cash"`
	ExpectedCashSales float64     `json:"expected_cash_sales"`
	ActualCashSales   float64     `json:"actual_cash_sales"`
	CashSales         float64     `json:"cash_sales"`
	CardSales         float64     `json:"card_sales"`
	OnlineSales       float64     `json:"online_sales"`
	BankDeposit       float64     `json:"bank_deposit"`
	Discrepancy       float64     `json:"discrepancy"`
	Status            ShiftStatus `json:"status"`
	OperatorName      string      `json:"operator_name,omitempty"`
}

type ShiftOpenRequest struct {
	StartingCash float64 `json:"starting_cash"`
	OperatorName string  `json:"operator_name"`
}

type ShiftCloseRequest struct {
	ActualCash  float64 `json:"actual_cash"`
	BankDeposit float64 `json:"bank_deposit"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

type WasteRecord struct {
	ID         string       `json:"id"`
	ItemID     string       `json:"item_id"`
	ItemName   string       `json:"item_name"`
	ItemSource RecipeSource `json:"item_source"`
	Amount     float64      `json:"amount"`
	Unit       Unit         `json:"unit"`
	CostLoss   float64      `json:"cost_loss"`
	Reason     string       `json:"reason"`
	Date       time.Time    `json:"date"`
}

type WasteRequest struct {
	ItemID     string       `json:"item_id"`
	ItemSource RecipeSource `json:"item_source"`
	Amount     float64      `json:"amount"`
	Reason     string       `json:"reason"`
}

type Supplier struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	PhoneNumber string `json:"phone_number"`
}

type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "unpaid"
	InvoicePaid   InvoiceStatus = "paid"
)

type InvoiceLine struct {
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Unit         Unit    `json:"unit"`
	CostPerUnit  float64 `json:"cost_per_unit"`
	IngredientID string  `json:"ingredient_id,omitempty"`
}

type PurchaseInvoice struct {
	ID            string        `json:"id"`
	SupplierID    string        `json:"supplier_id,omitempty"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	InvoiceDate   time.Time     `json:"invoice_date"`
	TotalAmount   float64       `json:"total_amount"`
	Status        InvoiceStatus `json:"status"`
	Items         []InvoiceLine `json:"items"`
}

type InvoiceCreateRequest struct {
	SupplierID    string        `json:"supplier_id,omitempty"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	InvoiceDate   *time.Time    `json:"invoice_date,omitempty"`
	Status        InvoiceStatus `json:"status,omitempty"`
	Items         []InvoiceLine `json:"items"`
}

// ProcessedInvoiceItem is an extracted invoice line matched against the
// current inventory.
type ProcessedInvoiceItem struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        Unit    `json:"unit"`
	CostPerUnit float64 `json:"cost_per_unit"`
	IsNew       bool    `json:"is_new"`
	MatchedID   string  `json:"matched_id,omitempty"`
}

type InvoiceDraft struct {
	InvoiceDate *time.Time             `json:"invoice_date,omitempty"`
	Items       []ProcessedInvoiceItem `json:"items"`
}

// StockReceipt is one incoming lot. An empty IngredientID creates a new
// ingredient from Template.
type StockReceipt struct {
	IngredientID string
	Template     *Ingredient
	Quantity     float64
	CostPerUnit  float64
	Date         time.Time
}

type IngredientCreateRequest struct {
	Name         string  `json:"name"`
	Unit         Unit    `json:"unit"`
	CurrentStock float64 `json:"current_stock"`
	CostPerUnit  float64 `json:"cost_per_unit"`
	MinThreshold float64 `json:"min_threshold"`
	SupplierID   string  `json:"supplier_id,omitempty"`
}

type IngredientUpdateRequest struct {
	Name         *string  `json:"name,omitempty"`
	Unit         *Unit    `json:"unit,omitempty"`
	MinThreshold *float64 `json:"min_threshold,omitempty"`
	SupplierID   *string  `json:"supplier_id,omitempty"`
}

type RestockRequest struct {
	Quantity    float64 `json:"quantity"`
	CostPerUnit float64 `json:"cost_per_unit"`
}

type PrepTaskRequest struct {
	Item     string  `json:"item"`
	Station  string  `json:"station"`
	ParLevel float64 `json:"par_level"`
	OnHand   float64 `json:"on_hand"`
	Unit     Unit    `json:"unit"`
}

type PrepRecipeRequest struct {
	Recipe    []RecipeIngredient `json:"recipe"`
	BatchSize float64            `json:"batch_size"`
}

type ProduceRequest struct {
	Batches float64 `json:"batches"`
}

type AdjustOnHandRequest struct {
	OnHand float64 `json:"on_hand"`
}

type ProduceResponse struct {
	PrepTask    PrepTask           `json:"prep_task"`
	Consumed    map[string]float64 `json:"consumed"`
	OnHandDelta float64            `json:"on_hand_delta"`
}

type MenuItemRequest struct {
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Price    float64            `json:"price"`
	Recipe   []RecipeIngredient `json:"recipe"`
	ImageURL string             `json:"image_url,omitempty"`
}

type ExpenseCategory string

const (
	ExpenseRent        ExpenseCategory = "rent"
	ExpenseSalary      ExpenseCategory = "salary"
	ExpenseUtilities   ExpenseCategory = "utilities"
	ExpenseMarketing   ExpenseCategory = "marketing"
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseOther       ExpenseCategory = "other"
)

type Expense struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Amount      float64         `json:"amount"`
	Category    ExpenseCategory `json:"category"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}

type ProfitAndLoss struct {
	From              time.Time                   `json:"from"`
	To                time.Time                   `json:"to"`
	Revenue           float64                     `json:"revenue"`
	COGS              float64                     `json:"cogs"`
	GrossProfit       float64                     `json:"gross_profit"`
	WasteLoss         float64                     `json:"waste_loss"`
	OperatingExpenses float64                     `json:"operating_expenses"`
	ExpensesByType    map[ExpenseCategory]float64 `json:"expenses_by_category"`
	NetProfit         float64                     `json:"net_profit"`
	NetMarginPercent  float64                     `json:"net_margin_percent"`
	SalesCount        int                         `json:"sales_count"`
	VoidCount         int                         `json:"void_count"`
	TaxCollected      float64                     `json:"tax_collected"`
	DiscountsGiven    float64                     `json:"discounts_given"`
	ByPayment         map[PaymentMethod]float64   `json:"by_payment"`
}

type DashboardSummary struct {
	Date          string  `json:"date"`
	Revenue       float64 `json:"revenue"`
	Profit        float64 `json:"profit"`
	SalesCount    int     `json:"sales_count"`
	LowStockCount int     `json:"low_stock_count"`
	PrepShortfall int     `json:"prep_shortfall"`
	OpenShiftID   string  `json:"open_shift_id,omitempty"`
}

type MenuClass string

const (
	MenuClassStar      MenuClass = "star"
	MenuClassPlowhorse MenuClass = "plowhorse"
	MenuClassPuzzle    MenuClass = "puzzle"
	MenuClassDog       MenuClass = "dog"
)

type MenuAnalysisItem struct {
	MenuItemID   string    `json:"menu_item_id"`
	Name         string    `json:"name"`
	Class        MenuClass `json:"class"`
	QuantitySold int       `json:"quantity_sold"`
	MixPercent   float64   `json:"mix_percent"`
	UnitMargin   float64   `json:"unit_margin"`
	Suggestion   string    `json:"suggestion"`
}

type MenuAnalysis struct {
	AnalysisDate        time.Time          `json:"analysis_date"`
	PopularityThreshold float64            `json:"popularity_threshold"`
	MarginThreshold     float64            `json:"margin_threshold"`
	Items               []MenuAnalysisItem `json:"items"`
}

type ForecastItem struct {
	ItemID          string  `json:"item_id"`
	ItemName        string  `json:"item_name"`
	Unit            Unit    `json:"unit"`
	CurrentStock    float64 `json:"current_stock"`
	DailyUsage      float64 `json:"daily_usage"`
	DaysOfCover     float64 `json:"days_of_cover"`
	QuantityToOrder float64 `json:"quantity_to_order"`
}

type SupplierOrder struct {
	SupplierID   string         `json:"supplier_id"`
	SupplierName string         `json:"supplier_name"`
	Items        []ForecastItem `json:"items"`
}

type ProcurementForecast struct {
	ForecastDate    time.Time       `json:"forecast_date"`
	CoverDays       int             `json:"cover_days"`
	Orders          []SupplierOrder `json:"orders"`
	NoSupplierItems []ForecastItem  `json:"no_supplier_items"`
}

type PrepPriority string

const (
	PrepPriorityHigh   PrepPriority = "high"
	PrepPriorityMedium PrepPriority = "medium"
	PrepPriorityLow    PrepPriority = "low"
)

type PrepPriorityItem struct {
	PrepTaskID     string       `json:"prep_task_id"`
	PrepTaskName   string       `json:"prep_task_name"`
	QuantityToPrep float64      `json:"quantity_to_prep"`
	BatchesToPrep  float64      `json:"batches_to_prep"`
	Priority       PrepPriority `json:"priority"`
}

type PrepPlan struct {
	ForecastDate time.Time          `json:"forecast_date"`
	Tasks        []PrepPriorityItem `json:"tasks"`
}

type GeneratedIngredient struct {
	IngredientID string  `json:"ingredient_id,omitempty"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Unit         Unit    `json:"unit"`
}

type GeneratedRecipe struct {
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Category       string                `json:"category"`
	SuggestedPrice float64               `json:"suggested_price"`
	Ingredients    []GeneratedIngredient `json:"ingredients"`
	Reasoning      string                `json:"reasoning"`
}

type AdviceRequest struct {
	Question string `json:"question"`
}

type AdviceResponse struct {
	Answer string `json:"answer"`
	Cached bool   `json:"cached"`
}

type ImportedSaleLine struct {
	ItemName     string  `json:"item_name"`
	Quantity     int     `json:"quantity"`
	PricePerItem float64 `json:"price_per_item"`
}

type ImportedMenuItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

type ProcessedSales struct {
	ProcessedSales []ImportedSaleLine `json:"processed_sales"`
	NewItemsFound  []ImportedMenuItem `json:"new_items_found"`
}

type SalesImportRequest struct {
	Currency string         `json:"currency"`
	Data     ProcessedSales `json:"data"`
}

type SalesImportResponse struct {
	Sale         *Sale      `json:"sale,omitempty"`
	NewMenuItems []MenuItem `json:"new_menu_items"`
	Skipped      []string   `json:"skipped,omitempty"`
}

// SaleCommit is the unit of work persisted by a checkout or an import.
type SaleCommit struct {
	Sale                Sale
	NewMenuItems        []MenuItem
	InventoryDeductions map[string]float64
	PrepDeductions      map[string]float64
}

type AuditAction string

const (
	AuditCreate     AuditAction = "CREATE"
	AuditUpdate     AuditAction = "UPDATE"
	AuditDelete     AuditAction = "DELETE"
	AuditWaste      AuditAction = "WASTE"
	AuditShiftOpen  AuditAction = "SHIFT_OPEN"
	AuditShiftClose AuditAction = "SHIFT_CLOSE"
	AuditInvoiceAdd AuditAction = "INVOICE_ADD"
	AuditProduce    AuditAction = "PRODUCE"
	AuditSale       AuditAction = "SALE"
	AuditImport     AuditAction = "IMPORT"
)

type AuditEntity string

const (
	EntityMenu      AuditEntity = "MENU"
	EntityInventory AuditEntity = "INVENTORY"
	EntityExpense   AuditEntity = "EXPENSE"
	EntityShift     AuditEntity = "SHIFT"
	EntityUser      AuditEntity = "USER"
	EntityInvoice   AuditEntity = "INVOICE"
	EntityPrep      AuditEntity = "PREP"
	EntitySale      AuditEntity = "SALE"
	EntitySupplier  AuditEntity = "SUPPLIER"
)

type AuditLog struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Username  string      `json:"username"`
	Role      string      `json:"role"`
	Action    AuditAction `json:"action"`
	Entity    AuditEntity `json:"entity"`
	EntityID  string      `json:"entity_id"`
	Details   string      `json:"details"`
}

const (
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleChef    = "chef"
)

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expires_at"`
}

// UserAccount is an internal persistence model for staff credentials.
type UserAccount struct {
	Username  string
	Name      string
	PIN       string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	PIN      string `json:"pin"`
	Role     string `json:"role"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
