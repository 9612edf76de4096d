package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/shopspring/decimal"
)

// End-to-end order lifecycle against real MySQL + Redis:
// stock deduction on create, restoration on cancel, pending points on
// create and activation on completion, insufficient stock rejection.
func TestOrderLifecycle_StockAndPoints(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "storefront_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	seedSettings(t, ctx, map[string]string{
		models.SettingKeyStockManagementEnabled: "true",
		models.SettingKeyLoyaltyEnabled:         "true",
		models.SettingKeyPointsEarningBasis:     "subtotal",
		models.SettingKeyPointsEarningRate:      "1",
		models.SettingKeyPointsRedemptionMin:    "10",
		models.SettingKeyPointsRedemptionValue:  "0.01",
		models.SettingKeyPointsExpiryMonths:     "12",
	})

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:      "Jasmine Rice 5kg",
		Sku:       "RICE-5KG",
		Price:     decimal.NewFromInt(25),
		CostPrice: decimal.NewFromInt(18),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, _, err := models.ApplyMovement(ctx, &models.NewStockMovement{
		ProductId:    product.ID,
		MovementType: models.MovementTypeIn,
		Quantity:     decimal.NewFromInt(10),
		Reason:       "Initial Stock",
	}); err != nil {
		t.Fatalf("stock in: %v", err)
	}

	customer := "cust-0001"
	order, err := models.CreateOrder(ctx, &models.NewOrder{
		UserId:        customer,
		CustomerEmail: "buyer@example.com",
		Items: []models.NewOrderItem{
			{ProductId: product.ID, Quantity: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected total 50, got %s", order.TotalAmount)
	}
	if !regexp.MustCompile(`^ORD-\d{13}-\d{5}$`).MatchString(order.OrderNumber) {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}

	record, err := models.GetInventoryRecord(ctx, product.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !record.Quantity.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected 8 left after sale, got %s", record.Quantity)
	}

	movements, err := models.ListStockMovements(ctx, models.StockMovementFilter{Reference: order.OrderNumber})
	if err != nil {
		t.Fatal(err)
	}
	if len(movements) != 1 || movements[0].MovementType != models.MovementTypeOut {
		t.Fatalf("expected one out-movement referencing the order, got %+v", movements)
	}

	// order is pending, so earned points must be pending too
	summary, err := models.GetLoyaltySummary(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Balance.PendingPoints != 50 || summary.Balance.AvailablePoints != 0 {
		t.Fatalf("expected 50 pending / 0 available, got %+v", summary.Balance)
	}

	completed := models.OrderStatusCompleted
	if _, err := models.UpdateOrder(ctx, order.ID, &models.UpdateOrderInput{Status: &completed}); err != nil {
		t.Fatalf("complete order: %v", err)
	}
	summary, err = models.GetLoyaltySummary(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Balance.AvailablePoints != 50 || summary.Balance.PendingPoints != 0 {
		t.Fatalf("expected 50 available after completion, got %+v", summary.Balance)
	}

	// selling more than remains must fail without touching stock
	_, err = models.CreateOrder(ctx, &models.NewOrder{
		UserId:        customer,
		CustomerEmail: "buyer@example.com",
		Items: []models.NewOrderItem{
			{ProductId: product.ID, Quantity: decimal.NewFromInt(20)},
		},
	})
	var insufficient *utils.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	record, _ = models.GetInventoryRecord(ctx, product.ID, nil)
	if !record.Quantity.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("failed order must not change stock, got %s", record.Quantity)
	}

	// cancellation restores the deducted quantity
	second, err := models.CreateOrder(ctx, &models.NewOrder{
		UserId:        customer,
		CustomerEmail: "buyer@example.com",
		Items: []models.NewOrderItem{
			{ProductId: product.ID, Quantity: decimal.NewFromInt(3)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	record, _ = models.GetInventoryRecord(ctx, product.ID, nil)
	if !record.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 after second sale, got %s", record.Quantity)
	}
	cancelled := models.OrderStatusCancelled
	if _, err := models.UpdateOrder(ctx, second.ID, &models.UpdateOrderInput{Status: &cancelled}); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	record, _ = models.GetInventoryRecord(ctx, product.ID, nil)
	if !record.Quantity.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected stock restored to 8 after cancel, got %s", record.Quantity)
	}

	// redemption debits the available balance
	if _, err := models.RedeemPoints(ctx, customer, order.ID, 20, decimal.NewFromFloat(0.2)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	summary, err = models.GetLoyaltySummary(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Balance.AvailablePoints != 30 {
		t.Fatalf("expected 30 available after redemption, got %+v", summary.Balance)
	}

	// redeeming below the configured minimum is rejected
	_, err = models.RedeemPoints(ctx, customer, order.ID, 5, decimal.NewFromFloat(0.05))
	var belowMin *utils.BelowRedemptionMinimumError
	if !errors.As(err, &belowMin) {
		t.Fatalf("expected BelowRedemptionMinimumError, got %v", err)
	}

	// weight-managed variable products pool stock at the product level:
	// selling through a variant moves the null-variant record, in grams,
	// priced per kilogram
	variable := true
	tea, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:                "Shan Green Tea",
		Sku:                 "TEA-LOOSE",
		Price:               decimal.NewFromInt(40),
		CostPrice:           decimal.NewFromInt(25),
		StockManagementType: models.StockManagementTypeWeight,
		IsVariable:          &variable,
		Variants: []models.NewProductVariant{
			{Title: "250g pack", Sku: "TEA-250", Price: decimal.NewFromInt(40), CostPrice: decimal.NewFromInt(25)},
			{Title: "500g pack", Sku: "TEA-500", Price: decimal.NewFromInt(40), CostPrice: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		t.Fatalf("create weight product: %v", err)
	}
	if _, _, err := models.ApplyMovement(ctx, &models.NewStockMovement{
		ProductId:    tea.ID,
		MovementType: models.MovementTypeIn,
		Quantity:     decimal.NewFromInt(2000),
		Reason:       "Initial Stock",
	}); err != nil {
		t.Fatalf("weight stock in: %v", err)
	}

	packId := tea.Variants[1].ID
	teaOrder, err := models.CreateOrder(ctx, &models.NewOrder{
		CustomerEmail: "buyer@example.com",
		Items: []models.NewOrderItem{
			{ProductId: tea.ID, VariantId: &packId, WeightQuantity: decimal.NewFromInt(500)},
		},
	})
	if err != nil {
		t.Fatalf("create weight order: %v", err)
	}
	// 40 per kg, 500g sold
	if !teaOrder.TotalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected total 20 for 500g at 40/kg, got %s", teaOrder.TotalAmount)
	}

	pooled, err := models.GetInventoryRecord(ctx, tea.ID, nil)
	if err != nil {
		t.Fatalf("pooled record: %v", err)
	}
	if !pooled.WeightQuantity.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected 1500g pooled after sale, got %s", pooled.WeightQuantity)
	}
	if _, err := models.GetInventoryRecord(ctx, tea.ID, &packId); err == nil {
		t.Fatal("variant-level record must not exist for weight-variable products")
	}

	if _, err := models.UpdateOrder(ctx, teaOrder.ID, &models.UpdateOrderInput{Status: &cancelled}); err != nil {
		t.Fatalf("cancel weight order: %v", err)
	}
	pooled, _ = models.GetInventoryRecord(ctx, tea.ID, nil)
	if !pooled.WeightQuantity.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected 2000g restored after cancel, got %s", pooled.WeightQuantity)
	}

	// the expiry sweep retires dated earned rows exactly once; re-runs see
	// the is_expired flag and do nothing. The customer holds two earned
	// rows at this point: 50 activated and 75 still pending.
	past := time.Now().AddDate(0, 0, -1)
	if err := config.GetDB().Model(&models.LoyaltyPointsHistory{}).
		Where("user_id = ? AND transaction_type = ?", customer, models.PointsTransactionTypeEarned).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate earned rows: %v", err)
	}

	expired, err := models.ExpirePoints(ctx)
	if err != nil {
		t.Fatalf("expire points: %v", err)
	}
	if expired.RowsExpired != 2 || expired.PointsExpired != 125 {
		t.Fatalf("expected 2 rows / 125 points expired, got %+v", expired)
	}
	summary, err = models.GetLoyaltySummary(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Balance.AvailablePoints != 0 {
		t.Fatalf("expected available clamped to 0 after expiry, got %+v", summary.Balance)
	}
	if summary.Balance.PointsExpiringSoon != 0 {
		t.Fatalf("expected nothing left expiring soon, got %d", summary.Balance.PointsExpiringSoon)
	}

	again, err := models.ExpirePoints(ctx)
	if err != nil {
		t.Fatalf("re-run expire points: %v", err)
	}
	if again.UsersProcessed != 0 || again.RowsExpired != 0 {
		t.Fatalf("re-run must be a no-op, got %+v", again)
	}
	var compensating int64
	if err := config.GetDB().Model(&models.LoyaltyPointsHistory{}).
		Where("user_id = ? AND transaction_type = ?", customer, models.PointsTransactionTypeExpired).
		Count(&compensating).Error; err != nil {
		t.Fatal(err)
	}
	if compensating != 2 {
		t.Fatalf("expected exactly 2 compensating rows after two sweeps, got %d", compensating)
	}

	// points awarded inside the one-month window land in the maintained
	// expiring-soon counter
	if _, err := models.UpsertSetting(ctx, models.SettingKeyPointsExpiryMonths, "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := models.AwardPoints(ctx, customer, order.ID, decimal.NewFromInt(50), decimal.NewFromInt(50)); err != nil {
		t.Fatalf("award points: %v", err)
	}
	summary, err = models.GetLoyaltySummary(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Balance.AvailablePoints != 50 || summary.Balance.PointsExpiringSoon != 50 {
		t.Fatalf("expected 50 available / 50 expiring soon, got %+v", summary.Balance)
	}
}

func seedSettings(t *testing.T, ctx context.Context, values map[string]string) {
	t.Helper()
	for key, value := range values {
		if _, err := models.UpsertSetting(ctx, key, value); err != nil {
			t.Fatalf("seed setting %s: %v", key, err)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("storefront-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("storefront-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=storefront_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
