package cms

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goflash/flashcms/ctx"
	"github.com/goflash/flashcms/document"
	"github.com/goflash/flashcms/render"
	"github.com/goflash/flashcms/validate"
)

func msgNotExist(name string) string { return name + " does not exist." }

// docName returns the :name parameter, or "" when it cannot name a file.
func docName(c ctx.Ctx) string { return c.ParamFilename("name") }

func (s *Server) index(c ctx.Ctx) error {
	docs, err := s.docs.List(c.Context())
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, render.PageIndex, page(c, "", "", render.IndexData{Documents: docs}))
}

func (s *Server) show(c ctx.Ctx) error {
	name := docName(c)
	if name == "" {
		return redirectWithFlash(c, "/", msgNotExist(c.Param("name")))
	}
	doc, err := s.docs.Read(c.Context(), name)
	if errors.Is(err, document.ErrNotFound) {
		return redirectWithFlash(c, "/", msgNotExist(name))
	}
	if err != nil {
		return err
	}

	if doc.Kind != document.Markdown {
		c.Header("X-Content-Type-Options", "nosniff")
		return c.String(http.StatusOK, string(doc.Content))
	}
	html, err := s.views.Markdown(doc.Body)
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, render.PageDocument, page(c, doc.Title, "", render.DocumentData{Name: name, HTML: html}))
}

func (s *Server) newForm(c ctx.Ctx) error {
	return s.render(c, http.StatusOK, render.PageNew, page(c, "New Document", "", render.NewData{}))
}

type newDocumentFields struct {
	Name string `json:"name"`
}

func (s *Server) create(c ctx.Ctx) error {
	var f newDocumentFields
	if err := bindForm(c, &f); err != nil {
		return err
	}

	fail := func(msg string) error {
		return s.render(c, http.StatusUnprocessableEntity, render.PageNew,
			page(c, "New Document", msg, render.NewData{Name: f.Name}))
	}

	name, err := document.ValidateName(f.Name)
	var ne *document.NameError
	if errors.As(err, &ne) {
		return fail(ne.Message)
	}
	if err != nil {
		return err
	}

	err = s.docs.Create(c.Context(), name)
	switch {
	case errors.Is(err, document.ErrExists):
		return fail(name + " already exists.")
	case errors.Is(err, document.ErrInvalidName):
		return fail(validate.MsgInvalidName)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	ctx.LoggerFromContext(c.Context()).Info("document created", "document", name, "user", currentUser(c))
	return redirectWithFlash(c, "/", name+" was created.")
}

func (s *Server) editForm(c ctx.Ctx) error {
	name := docName(c)
	if name == "" {
		return redirectWithFlash(c, "/", msgNotExist(c.Param("name")))
	}
	doc, err := s.docs.Read(c.Context(), name)
	if errors.Is(err, document.ErrNotFound) {
		return redirectWithFlash(c, "/", msgNotExist(name))
	}
	if err != nil {
		return err
	}
	return s.render(c, http.StatusOK, render.PageEdit,
		page(c, "Edit "+name, "", render.EditData{Name: name, Content: string(doc.Content)}))
}

type editFields struct {
	Content string `json:"content"`
}

// update replaces the content of a document. Saving to a name that does not
// exist yet creates it, provided the name would be accepted by the new
// document form.
func (s *Server) update(c ctx.Ctx) error {
	name := docName(c)
	if name == "" {
		return redirectWithFlash(c, "/", msgNotExist(c.Param("name")))
	}
	var f editFields
	if err := bindForm(c, &f); err != nil {
		return err
	}
	if !s.docs.Exists(c.Context(), name) {
		if msg := validate.DocNameProblem(name); msg != "" {
			return redirectWithFlash(c, "/", msg)
		}
	}
	if err := s.docs.Write(c.Context(), name, []byte(f.Content)); err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	ctx.LoggerFromContext(c.Context()).Info("document updated", "document", name, "user", currentUser(c), "bytes", len(f.Content))
	return redirectWithFlash(c, "/", name+" has been updated.")
}

func (s *Server) delete(c ctx.Ctx) error {
	name := docName(c)
	if name == "" {
		return redirectWithFlash(c, "/", msgNotExist(c.Param("name")))
	}
	if err := s.docs.Delete(c.Context(), name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	ctx.LoggerFromContext(c.Context()).Info("document deleted", "document", name, "user", currentUser(c))
	return redirectWithFlash(c, "/", name+" was deleted.")
}

func (s *Server) duplicate(c ctx.Ctx) error {
	name := docName(c)
	if name == "" {
		return redirectWithFlash(c, "/", msgNotExist(c.Param("name")))
	}
	copyName, err := s.docs.Duplicate(c.Context(), name)
	switch {
	case errors.Is(err, document.ErrNotFound):
		return redirectWithFlash(c, "/", msgNotExist(name))
	case errors.Is(err, document.ErrInvalidName):
		return redirectWithFlash(c, "/", name+" cannot be duplicated, its name is too long.")
	case err != nil:
		return fmt.Errorf("duplicate %s: %w", name, err)
	}
	ctx.LoggerFromContext(c.Context()).Info("document duplicated", "document", name, "copy", copyName, "user", currentUser(c))
	return redirectWithFlash(c, "/", fmt.Sprintf("%s was duplicated as %s.", name, copyName))
}
