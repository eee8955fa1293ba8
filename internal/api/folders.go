package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/query"
)

// FolderService is the /folders/ resource.
type FolderService struct {
	c *Client
}

// folderList accepts both a paginated envelope and a bare array.
type folderList model.Collection[model.Folder]

func (l *folderList) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		var results []model.Folder
		if err := json.Unmarshal(data, &results); err != nil {
			return err
		}
		*l = folderList{Count: len(results), Results: results}
		return nil
	}
	var coll model.Collection[model.Folder]
	if err := json.Unmarshal(data, &coll); err != nil {
		return err
	}
	*l = folderList(coll)
	return nil
}

// List fetches all folders of the current user. The descriptor is unused;
// folders are never filtered or paged.
func (s *FolderService) List(ctx context.Context, _ query.Descriptor) (model.Collection[model.Folder], error) {
	var out folderList
	if err := s.c.do(ctx, "list folders", http.MethodGet, foldersPath, nil, nil, &out); err != nil {
		return model.Collection[model.Folder]{}, err
	}
	for _, f := range out.Results {
		if err := f.Validate(); err != nil {
			return model.Collection[model.Folder]{}, err
		}
	}
	return model.Collection[model.Folder](out), nil
}

func (s *FolderService) Create(ctx context.Context, f model.Folder) (model.Folder, error) {
	var out model.Folder
	if err := s.c.do(ctx, "create folder", http.MethodPost, foldersPath, nil, f, &out); err != nil {
		return model.Folder{}, err
	}
	return out, out.Validate()
}

func (s *FolderService) Update(ctx context.Context, id int, f model.Folder) (model.Folder, error) {
	f.ID = 0
	var out model.Folder
	if err := s.c.do(ctx, "update folder", http.MethodPut, foldersPath+strconv.Itoa(id)+"/", nil, f, &out); err != nil {
		return model.Folder{}, err
	}
	return out, out.Validate()
}

func (s *FolderService) Delete(ctx context.Context, id int) error {
	return s.c.do(ctx, "delete folder", http.MethodDelete, foldersPath+strconv.Itoa(id), nil, nil, nil)
}
