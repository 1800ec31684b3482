package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carrental/car-rental-api/models"
	"github.com/carrental/car-rental-api/services"
	"github.com/carrental/car-rental-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func catalogRouter(user *models.User) *gin.Engine {
	router := newRouter(user)
	router.GET("/brands", ListBrands)
	router.GET("/brands/:id", GetBrand)
	router.POST("/brands", CreateBrand)
	router.PATCH("/brands/:id", UpdateBrand)
	router.DELETE("/brands/:id", DeleteBrand)
	router.GET("/types", ListTypes)
	router.GET("/types/:id", GetType)
	router.POST("/types", CreateType)
	router.PATCH("/types/:id", UpdateType)
	router.DELETE("/types/:id", DeleteType)
	router.GET("/cars", ListCars)
	router.GET("/cars/:id", GetCar)
	router.POST("/cars", CreateCar)
	router.PATCH("/cars/:id", UpdateCar)
	router.DELETE("/cars/:id", DeleteCar)
	router.POST("/cars/:id/image", UploadCarImage)
	return router
}

func TestBrandCRUD(t *testing.T) {
	db, _ := setupControllerTest(t, nil)
	admin := testutil.CreateUser(t, db, true)
	router := catalogRouter(&admin)

	w := performRequest(router, "POST", "/brands", `{"name":"Hyundai"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var brand models.Brand
	resp := decodeData(t, w, &brand)
	assert.Equal(t, "Created successfully.", resp.Message)
	assert.True(t, brand.Available, "brands are available unless stated otherwise")

	t.Run("duplicate name", func(t *testing.T) {
		w := performRequest(router, "POST", "/brands", `{"name":"Hyundai"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_NAME", decodeResponse(t, w).code())
	})

	t.Run("missing name", func(t *testing.T) {
		w := performRequest(router, "POST", "/brands", `{"available":true}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, w).code())
	})

	t.Run("update", func(t *testing.T) {
		w := performRequest(router, "PATCH", fmt.Sprintf("/brands/%d", brand.ID), `{"available":false}`)
		require.Equal(t, http.StatusOK, w.Code)
		var updated models.Brand
		decodeData(t, w, &updated)
		assert.Equal(t, "Hyundai", updated.Name)
		assert.False(t, updated.Available)
	})

	t.Run("list and get", func(t *testing.T) {
		w := performRequest(router, "GET", "/brands", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var brands []models.Brand
		decodeData(t, w, &brands)
		assert.Len(t, brands, 1)

		w = performRequest(router, "GET", fmt.Sprintf("/brands/%d", brand.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = performRequest(router, "GET", "/brands/9999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "BRAND_NOT_FOUND", decodeResponse(t, w).code())

		w = performRequest(router, "GET", "/brands/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_ID", decodeResponse(t, w).code())
	})

	t.Run("delete", func(t *testing.T) {
		w := performRequest(router, "DELETE", fmt.Sprintf("/brands/%d", brand.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Deleted successfully.", decodeResponse(t, w).Message)

		w = performRequest(router, "GET", fmt.Sprintf("/brands/%d", brand.ID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteWithOutstandingBookings(t *testing.T) {
	db, _ := setupControllerTest(t, nil)
	admin := testutil.CreateUser(t, db, true)
	customer := testutil.CreateUser(t, db, false)
	router := catalogRouter(&admin)

	car := testutil.CreateCar(t, db, 2000)
	start := models.MustParseDate("2030-06-01")
	order := testutil.CreateOrder(t, db, customer, car, start, start.AddDays(2))

	paths := map[string]string{
		"car":   fmt.Sprintf("/cars/%d", car.ID),
		"brand": fmt.Sprintf("/brands/%d", car.BrandID),
		"type":  fmt.Sprintf("/types/%d", car.TypeID),
	}
	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			w := performRequest(router, "DELETE", path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, "HAS_EXISTING_BOOKINGS", resp.code())
		})
	}

	// Returned orders no longer block deletion, and the brand takes its cars with it
	require.NoError(t, db.Model(&order).Update("returned", true).Error)

	w := performRequest(router, "DELETE", paths["brand"], nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(router, "GET", paths["car"], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CAR_NOT_FOUND", decodeResponse(t, w).code())

	var deleted models.Car
	err := db.First(&deleted, car.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateCar(t *testing.T) {
	db, _ := setupControllerTest(t, nil)
	admin := testutil.CreateUser(t, db, true)
	router := catalogRouter(&admin)

	brand := models.Brand{Name: "Tata", Available: true}
	require.NoError(t, db.Create(&brand).Error)
	carType := models.CarType{Name: "SUV", Available: true}
	require.NoError(t, db.Create(&carType).Error)

	body := func(price string, brandID uint) string {
		return fmt.Sprintf(`{"name":"Nexon","reg_number":"MH12XY0001","brand_id":%d,"type_id":%d,"price":%s,"fuel_type":4,"transmission_type":2}`,
			brandID, carType.ID, price)
	}

	testCases := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{"missing price", `{"name":"Nexon","reg_number":"X","brand_id":1,"type_id":1,"fuel_type":1,"transmission_type":1}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"zero price", body(`"0"`, brand.ID), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"negative price", body(`-10`, brand.ID), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown fuel type", `{"name":"Nexon","reg_number":"X","brand_id":1,"type_id":1,"price":10,"fuel_type":9,"transmission_type":1}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown brand", body(`1500`, 9999), http.StatusNotFound, "BRAND_NOT_FOUND"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/cars", tc.body)
			assert.Equal(t, tc.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tc.expectedCode, decodeResponse(t, w).code())
		})
	}

	w := performRequest(router, "POST", "/cars", body(`"1500.50"`, brand.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var car models.Car
	decodeData(t, w, &car)
	assert.Equal(t, "Nexon", car.Name)
	assert.Equal(t, models.DefaultSeats, car.Seats)
	assert.Equal(t, models.FuelElectric, car.FuelType)
	assert.Equal(t, "Tata", car.Brand.Name)
	assert.True(t, car.Price.Equal(decimal.RequireFromString("1500.50")))

	t.Run("duplicate registration number", func(t *testing.T) {
		w := performRequest(router, "POST", "/cars", body(`1500`, brand.ID))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("partial update", func(t *testing.T) {
		w := performRequest(router, "PATCH", fmt.Sprintf("/cars/%d", car.ID), `{"seats":7,"available":false}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updated models.Car
		decodeData(t, w, &updated)
		assert.Equal(t, 7, updated.Seats)
		assert.False(t, updated.Available)
		assert.Equal(t, "Nexon", updated.Name)
	})
}

func TestListCars_Filters(t *testing.T) {
	db, _ := setupControllerTest(t, nil)
	customer := testutil.CreateUser(t, db, false)
	router := catalogRouter(nil)

	cheap := testutil.CreateCar(t, db, 1000)
	mid := testutil.CreateCar(t, db, 2500)
	pricey := testutil.CreateCar(t, db, 6000)
	require.NoError(t, db.Model(&cheap).Update("name", "Alto K10").Error)
	require.NoError(t, db.Model(&mid).Update("name", "Creta").Error)
	require.NoError(t, db.Model(&pricey).Update("name", "Fortuner").Error)
	require.NoError(t, db.Model(&models.Brand{}).Where("id = ?", pricey.BrandID).Update("name", "Toyota").Error)

	start := models.MustParseDate("2030-07-10")
	testutil.CreateOrder(t, db, customer, mid, start, start.AddDays(3))

	ids := func(w *httptest.ResponseRecorder) []uint {
		var cars []models.Car
		decodeData(t, w, &cars)
		out := make([]uint, 0, len(cars))
		for _, c := range cars {
			out = append(out, c.ID)
		}
		return out
	}

	testCases := []struct {
		name     string
		query    string
		expected []uint
	}{
		{"no filters", "", []uint{cheap.ID, mid.ID, pricey.ID}},
		{"min price", "?min_price=2000", []uint{mid.ID, pricey.ID}},
		{"price range", "?min_price=2000&max_price=3000", []uint{mid.ID}},
		{"name is case-insensitive", "?name=alto", []uint{cheap.ID}},
		{"brand name", "?brand=toy", []uint{pricey.ID}},
		{"overlapping window hides booked car", "?start_date=2030-07-12&end_date=2030-07-20", []uint{cheap.ID, pricey.ID}},
		{"window touching the last day", "?start_date=2030-07-13&end_date=2030-07-13", []uint{cheap.ID, pricey.ID}},
		{"window after booking", "?start_date=2030-07-14&end_date=2030-07-15", []uint{cheap.ID, mid.ID, pricey.ID}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, "GET", "/cars"+tc.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tc.expected, ids(w))
		})
	}

	t.Run("pagination", func(t *testing.T) {
		w := performRequest(router, "GET", "/cars?page=2&limit=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []uint{pricey.ID}, ids(w))

		var meta services.Page
		resp := decodeResponse(t, w)
		require.NoError(t, json.Unmarshal(resp.Meta, &meta))
		assert.Equal(t, int64(3), meta.Total)
		assert.Equal(t, 2, meta.Page)
		assert.Equal(t, 2, meta.Limit)
	})

	t.Run("unavailable brand hides its cars from the window search", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Brand{}).Where("id = ?", cheap.BrandID).Update("available", false).Error)
		w := performRequest(router, "GET", "/cars?start_date=2030-08-01&end_date=2030-08-02", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []uint{mid.ID, pricey.ID}, ids(w))
	})

	errorCases := []struct {
		name         string
		query        string
		expectedCode string
	}{
		{"bad min price", "?min_price=cheap", "VALIDATION_ERROR"},
		{"only start date", "?start_date=2030-07-10", "PROVIDE_START_END_DATE"},
		{"bad date", "?start_date=10-07-2030&end_date=2030-07-12", "INVALID_DATE_FORMAT"},
		{"end before start", "?start_date=2030-07-12&end_date=2030-07-10", "INVALID_START_END_DATE"},
		{"start in the past", "?start_date=2001-01-01&end_date=2001-01-02", "INVALID_START_DATE"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, "GET", "/cars"+tc.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.expectedCode, decodeResponse(t, w).code())
		})
	}
}

func multipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadCarImage(t *testing.T) {
	db, svc := setupControllerTest(t, nil)
	admin := testutil.CreateUser(t, db, true)
	router := catalogRouter(&admin)
	car := testutil.CreateCar(t, db, 1000)
	path := fmt.Sprintf("/cars/%d/image", car.ID)

	upload := func(field, filename string) *httptest.ResponseRecorder {
		body, contentType := multipartImage(t, field, filename, []byte("fake image bytes"))
		req := httptest.NewRequest("POST", path, body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("missing file", func(t *testing.T) {
		w := upload("photo", "car.png")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISSING_FILE", decodeResponse(t, w).code())
	})

	t.Run("unsupported format", func(t *testing.T) {
		w := upload("image", "car.gif")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_FILE_FORMAT", decodeResponse(t, w).code())
	})

	w := upload("image", "car.png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first models.Car
	decodeData(t, w, &first)
	require.NotNil(t, first.ImageKey)
	require.NotNil(t, first.ImageURL)
	assert.Contains(t, *first.ImageURL, *first.ImageKey)
	assert.True(t, svc.S3.FileExists(*first.ImageKey))

	t.Run("replacing the photo removes the old object", func(t *testing.T) {
		w := upload("image", "car.jpg")
		require.Equal(t, http.StatusOK, w.Code)
		var second models.Car
		decodeData(t, w, &second)
		require.NotNil(t, second.ImageKey)
		assert.NotEqual(t, *first.ImageKey, *second.ImageKey)
		assert.False(t, svc.S3.FileExists(*first.ImageKey))
		assert.Equal(t, []string{*second.ImageKey}, svc.S3.Keys())
	})
}
