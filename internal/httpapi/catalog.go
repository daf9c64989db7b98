package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/go-logistics/internal/models"
)

type catalogQuery struct {
	pageQuery
	Q       string `form:"q"`
	Email   string `form:"email"`
	Country string `form:"country"`
}

// access gates the mutating routes of one entity. A nil guard leaves the
// route open to any authenticated user.
type access struct {
	write  gin.HandlerFunc
	remove gin.HandlerFunc
}

func guarded(guard, h gin.HandlerFunc) []gin.HandlerFunc {
	if guard == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{guard, h}
}

// registerCatalog mounts the CRUD routes for one reference entity. In is the
// create body and P the partial update body.
func registerCatalog[T, In, P any](
	g *gin.RouterGroup,
	path string,
	svc CatalogService[T],
	acl access,
	build func(In) *T,
	patch func(P, *T),
) {
	r := g.Group(path)

	r.POST("", guarded(acl.write, func(c *gin.Context) {
		var in In
		if err := bindJSON(c, &in); err != nil {
			abortWithError(c, err)
			return
		}
		created, err := svc.Create(c.Request.Context(), build(in))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	})...)

	r.GET("", func(c *gin.Context) {
		var q catalogQuery
		if err := bindQuery(c, &q); err != nil {
			abortWithError(c, err)
			return
		}
		f := models.CatalogFilter{Query: q.Q, Email: q.Email, Country: q.Country}
		page, err := svc.List(c.Request.Context(), f, q.request())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	})

	r.GET("/:id", func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		v, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	})

	r.PATCH("/:id", guarded(acl.write, func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		var p P
		if err := bindJSON(c, &p); err != nil {
			abortWithError(c, err)
			return
		}
		updated, err := svc.Update(c.Request.Context(), id, func(v *T) { patch(p, v) })
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	})...)

	r.DELETE("/:id", guarded(acl.remove, func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})...)
}

func set[V any](dst *V, src *V) {
	if src != nil {
		*dst = *src
	}
}

type customerBody struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Document string  `json:"document"`
	Phone    *string `json:"phone"`
}

type customerPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Document *string `json:"document"`
	Phone    *string `json:"phone"`
}

func newCustomer(b customerBody) *models.Customer {
	return &models.Customer{Name: b.Name, Email: b.Email, Document: b.Document, Phone: b.Phone}
}

func patchCustomer(p customerPatch, c *models.Customer) {
	set(&c.Name, p.Name)
	set(&c.Email, p.Email)
	set(&c.Document, p.Document)
	if p.Phone != nil {
		c.Phone = p.Phone
	}
}

type productBody struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type productPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func newProduct(b productBody) *models.Product {
	return &models.Product{Name: b.Name, Description: b.Description}
}

func patchProduct(p productPatch, v *models.Product) {
	set(&v.Name, p.Name)
	if p.Description != nil {
		v.Description = p.Description
	}
}

type warehouseBody struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Country  string `json:"country"`
}

type warehousePatch struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Country  *string `json:"country"`
}

func newWarehouse(b warehouseBody) *models.Warehouse {
	return &models.Warehouse{Name: b.Name, Location: b.Location, Country: b.Country}
}

func patchWarehouse(p warehousePatch, v *models.Warehouse) {
	set(&v.Name, p.Name)
	set(&v.Location, p.Location)
	set(&v.Country, p.Country)
}

type productTypeBody struct {
	Name string `json:"name"`
}

type productTypePatch struct {
	Name *string `json:"name"`
}

func newProductType(b productTypeBody) *models.ProductType {
	return &models.ProductType{Name: b.Name}
}

func patchProductType(p productTypePatch, v *models.ProductType) {
	set(&v.Name, p.Name)
}

type portBody struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type portPatch struct {
	Name    *string `json:"name"`
	Country *string `json:"country"`
}

func newPort(b portBody) *models.Port {
	return &models.Port{Name: b.Name, Country: b.Country}
}

func patchPort(p portPatch, v *models.Port) {
	set(&v.Name, p.Name)
	set(&v.Country, p.Country)
}
