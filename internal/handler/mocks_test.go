package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ku-isoko/internal/middleware"
	"ku-isoko/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newRequest builds a request with an optional JSON body, actor and chi URL params.
func newRequest(t *testing.T, method, target string, body any, actor *model.Actor, params ...string) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func customer() *model.Actor {
	return &model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}
}

func admin() *model.Actor {
	return &model.Actor{UserID: uuid.New(), Role: model.RoleAdmin}
}

func ret[T any](args mock.Arguments) (*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

// MockAuthService is a mock implementation of AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.LoginChallenge, error) {
	return ret[model.LoginChallenge](m.Called(ctx, req))
}

func (m *MockAuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginChallenge, error) {
	return ret[model.LoginChallenge](m.Called(ctx, req))
}

func (m *MockAuthService) VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.AuthResult, error) {
	return ret[model.AuthResult](m.Called(ctx, req))
}

func (m *MockAuthService) ResendOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockAuthService) Me(ctx context.Context, actor model.Actor) (*model.User, error) {
	return ret[model.User](m.Called(ctx, actor))
}

func (m *MockAuthService) GoogleLogin(ctx context.Context, profile model.GoogleProfile, role model.Role) (*model.GoogleLoginResult, error) {
	return ret[model.GoogleLoginResult](m.Called(ctx, profile, role))
}

// MockGoogleProvider is a mock implementation of GoogleProvider.
type MockGoogleProvider struct {
	mock.Mock
}

func (m *MockGoogleProvider) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockGoogleProvider) Exchange(ctx context.Context, code string) (*model.GoogleProfile, error) {
	return ret[model.GoogleProfile](m.Called(ctx, code))
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Get(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	return ret[model.CartView](m.Called(ctx, userID))
}

func (m *MockCartService) AddItem(ctx context.Context, userID uuid.UUID, req model.AddToCartRequest) (*model.CartView, error) {
	return ret[model.CartView](m.Called(ctx, userID, req))
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartView, error) {
	return ret[model.CartView](m.Called(ctx, userID, itemID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*model.CartView, error) {
	return ret[model.CartView](m.Called(ctx, userID, itemID))
}

func (m *MockCartService) Clear(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	return ret[model.CartView](m.Called(ctx, userID))
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, actor model.Actor, req model.CreateOrderRequest) (*model.Order, error) {
	return ret[model.Order](m.Called(ctx, actor, req))
}

func (m *MockOrderService) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	return ret[model.Order](m.Called(ctx, actor, id))
}

func (m *MockOrderService) ListMine(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.OrderList, error) {
	return ret[model.OrderList](m.Called(ctx, actor, page))
}

func (m *MockOrderService) ListForSeller(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.OrderList, error) {
	return ret[model.OrderList](m.Called(ctx, actor, page))
}

func (m *MockOrderService) ListAll(ctx context.Context, filter model.OrderFilter) (*model.OrderList, error) {
	return ret[model.OrderList](m.Called(ctx, filter))
}

func (m *MockOrderService) UpdateStatuses(ctx context.Context, id uuid.UUID, req model.UpdateOrderStatusRequest) (*model.Order, error) {
	return ret[model.Order](m.Called(ctx, id, req))
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiateMoMo(ctx context.Context, actor model.Actor, req model.MoMoInitiateRequest) (*model.PaymentInitiation, error) {
	return ret[model.PaymentInitiation](m.Called(ctx, actor, req))
}

func (m *MockPaymentService) InitiateStripe(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentInitiation, error) {
	return ret[model.PaymentInitiation](m.Called(ctx, actor, orderID))
}

func (m *MockPaymentService) VerifyMoMo(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentVerification, error) {
	return ret[model.PaymentVerification](m.Called(ctx, actor, orderID))
}

func (m *MockPaymentService) VerifyStripe(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentVerification, error) {
	return ret[model.PaymentVerification](m.Called(ctx, actor, orderID))
}

func (m *MockPaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

func (m *MockPaymentService) Reconcile(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return ret[model.Order](m.Called(ctx, orderID))
}

func (m *MockPaymentService) Status(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentStatusView, error) {
	return ret[model.PaymentStatusView](m.Called(ctx, actor, orderID))
}

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, actor model.Actor, req model.CreateProductRequest) (*model.Product, error) {
	return ret[model.Product](m.Called(ctx, actor, req))
}

func (m *MockProductService) List(ctx context.Context, filter model.ProductFilter) (*model.ProductList, error) {
	return ret[model.ProductList](m.Called(ctx, filter))
}

func (m *MockProductService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return ret[model.Product](m.Called(ctx, id))
}

func (m *MockProductService) Related(ctx context.Context, id uuid.UUID) ([]model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) ListMine(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.ProductList, error) {
	return ret[model.ProductList](m.Called(ctx, actor, page))
}

func (m *MockProductService) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req model.UpdateProductRequest) (*model.Product, error) {
	return ret[model.Product](m.Called(ctx, actor, id, req))
}

func (m *MockProductService) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockReviewService is a mock implementation of ReviewService.
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Create(ctx context.Context, actor model.Actor, productID uuid.UUID, req model.ReviewRequest) (*model.Review, error) {
	return ret[model.Review](m.Called(ctx, actor, productID, req))
}

func (m *MockReviewService) ListByProduct(ctx context.Context, productID uuid.UUID, page model.PageRequest) (*model.ProductReviews, error) {
	return ret[model.ProductReviews](m.Called(ctx, productID, page))
}

func (m *MockReviewService) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req model.ReviewRequest) (*model.Review, error) {
	return ret[model.Review](m.Called(ctx, actor, id, req))
}

func (m *MockReviewService) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockSellerService is a mock implementation of SellerService.
type MockSellerService struct {
	mock.Mock
}

func (m *MockSellerService) List(ctx context.Context, filter model.SellerFilter) (*model.SellerList, error) {
	return ret[model.SellerList](m.Called(ctx, filter))
}

func (m *MockSellerService) Get(ctx context.Context, id uuid.UUID) (*model.SellerProfile, error) {
	return ret[model.SellerProfile](m.Called(ctx, id))
}

func (m *MockSellerService) GetMine(ctx context.Context, actor model.Actor) (*model.SellerProfile, error) {
	return ret[model.SellerProfile](m.Called(ctx, actor))
}

func (m *MockSellerService) UpdateMine(ctx context.Context, actor model.Actor, update model.SellerProfileUpdate) (*model.SellerProfile, error) {
	return ret[model.SellerProfile](m.Called(ctx, actor, update))
}

func (m *MockSellerService) RequestUpgrade(ctx context.Context, actor model.Actor, req model.SellerUpgradeRequest) (*model.SellerProfile, error) {
	return ret[model.SellerProfile](m.Called(ctx, actor, req))
}

func (m *MockSellerService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SellerStatus) (*model.SellerProfile, error) {
	return ret[model.SellerProfile](m.Called(ctx, id, status))
}

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context, filter model.UserFilter) (*model.UserList, error) {
	return ret[model.UserList](m.Called(ctx, filter))
}

func (m *MockUserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return ret[model.User](m.Called(ctx, id))
}

func (m *MockUserService) UpdateRole(ctx context.Context, actor model.Actor, id uuid.UUID, role model.Role) (*model.User, error) {
	return ret[model.User](m.Called(ctx, actor, id, role))
}

func (m *MockUserService) ToggleActive(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.User, error) {
	return ret[model.User](m.Called(ctx, actor, id))
}

// MockStore is a mock implementation of storage.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}
