package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/domain/product"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/storage/remote"
)

// Admin tabs.
const (
	tabAddProduct     = "add-product"
	tabManageProducts = "manage-products"
	tabManageUsers    = "manage-users"
)

const (
	maxUploadFiles  = 8
	uploadWorkers   = 3
	maxFormOverhead = 1 << 20
	maxFieldSize    = 64 << 10
)

type adminForm struct {
	Name        string
	Description string
	Price       string
	Stock       string
	Category    string
	ImageURLs   string
	Variants    string
}

type adminData struct {
	Tab        string
	Categories []product.Category
	Products   []product.Product
	Users      []auth.User
	Form       adminForm
}

// AdminPage renders one of the admin tabs. The manage tabs load the product
// and user lists concurrently.
func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	switch tab {
	case tabManageProducts, tabManageUsers:
	default:
		tab = tabAddProduct
	}
	h.renderAdmin(w, r, http.StatusOK, tab, adminForm{Stock: "0"}, "")
}

func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, tab string, form adminForm, msg string) {
	data := adminData{
		Tab:        tab,
		Categories: product.Categories(),
		Form:       form,
	}
	var fetch func(ctx context.Context) error
	if tab != tabAddProduct {
		fetch = func(ctx context.Context) error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				if data.Products, err = h.products.List(gctx); err != nil {
					return errors.Wrap(err, "list products")
				}
				return nil
			})
			g.Go(func() error {
				var err error
				data.Users, err = h.auth.Users(gctx)
				return err
			})
			return g.Wait()
		}
	}

	p, err := h.load(r, "Admin", fetch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p.Error = msg
	p.Data = data
	h.render(w, r, status, "admin", p)
}

// CreateProduct uploads the attached images and creates the product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadFiles*remote.MaxUploadSize+maxFormOverhead)
	form, files, err := readProductForm(r)
	if err != nil {
		zctx.From(ctx).Warn("Read product form", zap.Error(err))
		status := http.StatusBadRequest
		if _, ok := errors.Into[*http.MaxBytesError](err); ok || errors.Is(err, remote.ErrUploadFailed) {
			status = http.StatusRequestEntityTooLarge
		}
		h.renderAdmin(w, r, status, tabAddProduct, form, msgUploadFailed)
		return
	}

	in, err := form.input()
	if err != nil {
		h.renderAdmin(w, r, http.StatusUnprocessableEntity, tabAddProduct, form, prefixCreateProduct+capitalize(err.Error()))
		return
	}

	uploaded, err := h.uploadImages(ctx, files)
	if err != nil {
		zctx.From(ctx).Error("Upload product images", zap.Error(err))
		h.renderAdmin(w, r, http.StatusBadGateway, tabAddProduct, form, msgUploadFailed)
		return
	}
	in.ImageURLs = append(in.ImageURLs, uploaded...)

	created, err := h.products.Create(ctx, in)
	if err != nil {
		h.renderAdmin(w, r, http.StatusBadGateway, tabAddProduct, form, failureMessage(prefixCreateProduct, err))
		return
	}
	zctx.From(ctx).Info("Product created", zap.String("product_id", created.ID))
	redirect(w, r, "/admin?tab="+tabAddProduct, msgProductCreated)
}

// upload is an image attached to the add-product form.
type upload struct {
	name string
	data []byte
}

// readProductForm streams the add-product form part by part. On error the
// fields read so far are still returned, so the page can show them again.
func readProductForm(r *http.Request) (adminForm, []upload, error) {
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return formFromValues(r.PostForm), nil, errors.Wrap(err, "parse form")
		}
		return formFromValues(r.PostForm), nil, nil
	}
	if err != nil {
		return adminForm{}, nil, errors.Wrap(err, "multipart reader")
	}

	values := url.Values{}
	var files []upload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return formFromValues(values), files, nil
		}
		if err != nil {
			return formFromValues(values), nil, errors.Wrap(err, "next part")
		}
		if err := readFormPart(part, values, &files); err != nil {
			return formFromValues(values), nil, err
		}
	}
}

func readFormPart(p *multipart.Part, values url.Values, files *[]upload) error {
	defer func() { _ = p.Close() }()

	name := p.FormName()
	if p.FileName() == "" {
		if name == "" {
			return nil
		}
		data, err := io.ReadAll(io.LimitReader(p, maxFieldSize+1))
		if err != nil {
			return errors.Wrapf(err, "read field %s", name)
		}
		if len(data) > maxFieldSize {
			return errors.Errorf("field %s is too large", name)
		}
		values.Add(name, string(data))
		return nil
	}
	if name != "image" {
		return nil
	}

	if len(*files) == maxUploadFiles {
		return errors.Wrapf(remote.ErrUploadFailed, "more than %d files attached", maxUploadFiles)
	}
	data, err := io.ReadAll(io.LimitReader(p, remote.MaxUploadSize+1))
	if err != nil {
		return errors.Wrapf(err, "read file %s", p.FileName())
	}
	if len(data) > remote.MaxUploadSize {
		return errors.Wrapf(remote.ErrUploadFailed, "%s is too large", p.FileName())
	}
	if len(data) > 0 {
		*files = append(*files, upload{name: p.FileName(), data: data})
	}
	return nil
}

func formFromValues(v url.Values) adminForm {
	return adminForm{
		Name:        v.Get("name"),
		Description: v.Get("description"),
		Price:       v.Get("price"),
		Stock:       v.Get("stock"),
		Category:    v.Get("category"),
		ImageURLs:   v.Get("image_urls"),
		Variants:    v.Get("variants"),
	}
}

// uploadImages stores files concurrently and returns their URLs in form
// order.
func (h *Handler) uploadImages(ctx context.Context, files []upload) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i, f := range files {
		g.Go(func() error {
			link, err := h.uploader.UploadImage(gctx, f.name, bytes.NewReader(f.data))
			if err != nil {
				return errors.Wrapf(err, "upload %s", f.name)
			}
			urls[i] = link
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// DeleteProduct removes a product from the catalog.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	back := "/admin?tab=" + tabManageProducts
	if err := h.products.Remove(r.Context(), chi.URLParam(r, "productID")); err != nil {
		if graphql.IsUnauthenticated(err) {
			h.fail(w, r, err)
			return
		}
		redirect(w, r, back, failureMessage(prefixRemoveProduct, err))
		return
	}
	redirect(w, r, back, msgProductRemoved)
}

// DeleteUser removes an account.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	back := "/admin?tab=" + tabManageUsers
	if err := h.auth.RemoveUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		if graphql.IsUnauthenticated(err) {
			h.fail(w, r, err)
			return
		}
		redirect(w, r, back, failureMessage(prefixRemoveUser, err))
		return
	}
	redirect(w, r, back, msgUserRemoved)
}

// input converts the submitted form into a product.CreateInput and runs the
// local checks.
func (f adminForm) input() (product.CreateInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return product.CreateInput{}, errors.New("price must be a number")
	}
	stock, err := strconv.Atoi(strings.TrimSpace(f.Stock))
	if err != nil {
		return product.CreateInput{}, errors.New("stock must be a whole number")
	}
	category, err := product.ParseCategory(f.Category)
	if err != nil {
		return product.CreateInput{}, errors.New("unknown category")
	}
	in := product.CreateInput{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Price:       price,
		Stock:       stock,
		Category:    category,
		ImageURLs:   product.ParseImageURLs(f.ImageURLs),
		Variants:    product.ParseVariantLines(f.Variants),
	}
	if err := in.Validate(); err != nil {
		return product.CreateInput{}, err
	}
	return in, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
