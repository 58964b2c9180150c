package webserver

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openballot/election-api/src/api/election"
)

const maxUploadBytes = 10 << 20 // per file

type Elections struct {
	svc *election.Service
	log *zap.Logger
}

func NewElections(svc *election.Service, log *zap.Logger) Elections {
	return Elections{svc: svc, log: log}
}

// Create accepts either a JSON body or a multipart form with a
// `payload` JSON field plus binary attachments (topicImage,
// logoBranding, questionImages, answerImages).
func (h Elections) Create(c *gin.Context) {
	creator := c.GetString("creator")

	var in election.CreateElectionInput
	var files *election.MediaBundle

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}
		payload := form.Value["payload"]
		if len(payload) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"err": "missing payload field"})
			return
		}
		if err := json.Unmarshal([]byte(payload[0]), &in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "malformed payload: " + err.Error()})
			return
		}
		files, err = bundleFromForm(form)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}
	}

	view, err := h.svc.Create(c.Request.Context(), creator, &in, files)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "election created",
		"data":    view,
	})
}

func (h Elections) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid election id"})
		return
	}

	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}

func (h Elections) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := election.ListFilter{
		Creator:   c.Query("creator"),
		Published: parseBoolQuery(c.Query("published")),
		Draft:     parseBoolQuery(c.Query("draft")),
		Page:      page,
		Limit:     limit,
	}

	items, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"total":   total,
		"page":    page,
	})
}

func (h Elections) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid election id"})
		return
	}

	var in election.UpdateElectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	view, err := h.svc.Update(c.Request.Context(), id, &in)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}

func (h Elections) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid election id"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "election deleted"})
}

func (h Elections) fail(c *gin.Context, err error) {
	var vErr *election.ValidationError
	var cErr *election.ConstraintError

	switch {
	case errors.Is(err, election.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": "election not found"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"err": vErr.Error()})
	case errors.As(err, &cErr):
		c.JSON(http.StatusConflict, gin.H{"err": cErr.Error(), "category": cErr.Category})
	default:
		h.log.Error("election request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
	}
}

func bundleFromForm(form *multipart.Form) (*election.MediaBundle, error) {
	bundle := &election.MediaBundle{}

	if up, err := firstUpload(form.File["topicImage"]); err != nil {
		return nil, err
	} else {
		bundle.TopicImage = up
	}
	if up, err := firstUpload(form.File["logoBranding"]); err != nil {
		return nil, err
	} else {
		bundle.Logo = up
	}

	for _, fh := range form.File["questionImages"] {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		bundle.QuestionImages = append(bundle.QuestionImages, *up)
	}
	for _, fh := range form.File["answerImages"] {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		bundle.AnswerImages = append(bundle.AnswerImages, *up)
	}

	return bundle, nil
}

func firstUpload(fhs []*multipart.FileHeader) (*election.Upload, error) {
	if len(fhs) == 0 {
		return nil, nil
	}
	return readUpload(fhs[0])
}

func readUpload(fh *multipart.FileHeader) (*election.Upload, error) {
	if fh.Size > maxUploadBytes {
		return nil, errors.New("file too large: " + fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, err
	}

	return &election.Upload{Filename: fh.Filename, Content: content}, nil
}

func parseBoolQuery(v string) *bool {
	switch v {
	case "true", "1":
		b := true
		return &b
	case "false", "0":
		b := false
		return &b
	}
	return nil
}
