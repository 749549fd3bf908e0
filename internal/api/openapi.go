package api

import (
	"github.com/JaimeStill/taxon/internal/config"
	"github.com/JaimeStill/taxon/pkg/openapi"
)

// BuildSpec assembles the OpenAPI document for the API module's routes.
// Paths are relative to the module's base path, published as the server URL.
func BuildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(domainSchemas())

	addCatalogPaths(spec)
	addRunPaths(spec)
	addStoragePaths(spec)

	return spec
}

func addCatalogPaths(spec *openapi.Spec) {
	tags := []string{"classsets"}

	spec.Paths["/classsets"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List class sets",
			Tags:    tags,
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Search name and description", false),
				openapi.QueryParam("sort", "string", "Comma-separated sort fields, - prefix for descending", false),
				openapi.QueryParam("name", "string", "Filter by exact name", false),
				openapi.QueryParam("class_count", "integer", "Filter by class count", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of class sets", "ClassSetPage"),
			},
		},
		Post: &openapi.Operation{
			Summary:     "Import a class set",
			Description: "Creates the named set or replaces its classes wholesale when the name already exists.",
			Tags:        tags,
			RequestBody: openapi.RequestBodyJSON("ImportClassSet", true),
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Imported class set", "ClassSet"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/classsets/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Search class sets",
			Tags:        tags,
			RequestBody: openapi.RequestBodyJSON("PageRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of class sets", "ClassSetPage"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/classsets/reindex"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Rebuild the similarity index for every class set",
			Description: "Re-embeds all classes across all sets. Use after changing the embedding model.",
			Tags:        tags,
			Responses: map[int]*openapi.Response{
				204: {Description: "Indexes rebuilt"},
			},
		},
	}

	spec.Paths["/classsets/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Get a class set",
			Tags:    tags,
			Parameters: []*openapi.Parameter{
				openapi.PathParam("id", "Class set ID"),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Class set with classes", "ClassSet"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
		Delete: &openapi.Operation{
			Summary: "Delete a class set",
			Tags:    tags,
			Parameters: []*openapi.Parameter{
				openapi.PathParam("id", "Class set ID"),
			},
			Responses: map[int]*openapi.Response{
				204: {Description: "Class set deleted"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/classsets/{id}/reindex"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Rebuild the similarity index for a class set",
			Description: "Re-embeds every class in the set. Use after changing the embedding model.",
			Tags:        tags,
			Parameters: []*openapi.Parameter{
				openapi.PathParam("id", "Class set ID"),
			},
			Responses: map[int]*openapi.Response{
				204: {Description: "Index rebuilt"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func addRunPaths(spec *openapi.Spec) {
	tags := []string{"runs"}

	spec.Paths["/runs"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List classification runs",
			Tags:    tags,
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Search class set name and predicted class", false),
				openapi.QueryParam("sort", "string", "Comma-separated sort fields, - prefix for descending", false),
				openapi.QueryParam("class_set_id", "string", "Filter by class set", false),
				openapi.QueryParam("stage", "string", "Filter by pipeline stage", false),
				openapi.QueryParam("predicted", "string", "Filter by predicted class ID", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of runs", "RunPage"),
			},
		},
		Post: &openapi.Operation{
			Summary:     "Classify a document",
			Description: "Executes the full pipeline: similarity retrieval, optional reranking, optional attribute validation. The run record and archived result are returned on completion.",
			Tags:        tags,
			RequestBody: openapi.RequestBodyJSON("ClassifyRequest", true),
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Completed run", "RunDetail"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/runs/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Search runs",
			Tags:        tags,
			RequestBody: openapi.RequestBodyJSON("PageRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of runs", "RunPage"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/runs/models"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:     "List reranking models",
			Description: "Friendly model names accepted in reranking_model, with their provider and vendor model ID.",
			Tags:        tags,
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Model catalog", "ModelList"),
			},
		},
	}

	spec.Paths["/runs/validate"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Validate a class's attributes against a document",
			Description: "Evaluates one class's attribute rule without recording a run.",
			Tags:        tags,
			RequestBody: openapi.RequestBodyJSON("ValidateRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Validation outcome", "ValidationResult"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/runs/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Get a run",
			Tags:    tags,
			Parameters: []*openapi.Parameter{
				openapi.PathParam("id", "Run ID"),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Run with archived result", "RunDetail"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
		Delete: &openapi.Operation{
			Summary:     "Delete a run",
			Description: "Removes the run record and its archived result.",
			Tags:        tags,
			Parameters: []*openapi.Parameter{
				openapi.PathParam("id", "Run ID"),
			},
			Responses: map[int]*openapi.Response{
				204: {Description: "Run deleted"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func addStoragePaths(spec *openapi.Spec) {
	tags := []string{"storage"}

	keyParam := &openapi.Parameter{
		Name:        "key",
		In:          "path",
		Required:    true,
		Description: "Blob key, e.g. runs/{run_id}.json",
		Schema:      &openapi.Schema{Type: "string"},
	}

	spec.Paths["/storage"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List archived blobs",
			Tags:    tags,
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("prefix", "string", "Key prefix filter", false),
				openapi.QueryParam("marker", "string", "Continuation marker from a previous page", false),
				openapi.QueryParam("max_results", "integer", "Page size cap", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Blob listing", "BlobList"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/storage/{key}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Get blob metadata",
			Tags:       tags,
			Parameters: []*openapi.Parameter{keyParam},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Blob metadata", "BlobInfo"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/storage/download/{key}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Download a blob",
			Tags:       tags,
			Parameters: []*openapi.Parameter{keyParam},
			Responses: map[int]*openapi.Response{
				200: {Description: "Blob content as an attachment"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func domainSchemas() map[string]*openapi.Schema {
	float := func(desc string) *openapi.Schema {
		return &openapi.Schema{Type: "number", Description: desc}
	}

	condition := &openapi.Schema{
		Type:        "object",
		Description: "A leaf condition. Exactly one params block matches the kind; freeform strings decode as text_match conditions.",
		Properties: map[string]*openapi.Schema{
			"id":          {Type: "string"},
			"description": {Type: "string"},
			"kind": {
				Type: "string",
				Enum: []any{"text_match", "numeric_range", "boolean", "custom"},
			},
			"text_match": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"case_sensitive": {Type: "boolean"},
				},
			},
			"numeric_range": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"field": {Type: "string"},
					"min":   {Type: "number"},
					"max":   {Type: "number"},
				},
			},
			"boolean": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"field": {Type: "string"},
				},
			},
			"custom": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"spec": {Type: "object"},
				},
			},
		},
		Required: []string{"description"},
	}

	rule := &openapi.Schema{
		Type:        "object",
		Description: "Attribute rule tree. Conditions combine under ALL (and) or ANY (or); terms are conditions, condition strings, or nested rules.",
		Properties: map[string]*openapi.Schema{
			"operator": {Type: "string", Enum: []any{"all", "any"}},
			"conditions": {
				Type:  "array",
				Items: &openapi.Schema{Description: "Condition object, bare condition string, or nested rule"},
			},
		},
		Required: []string{"operator", "conditions"},
	}

	class := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":          {Type: "string", Description: "Stable class identifier within the set"},
			"name":        {Type: "string"},
			"description": {Type: "string", Description: "Embedded for similarity retrieval"},
			"attributes":  openapi.SchemaRef("Rule"),
		},
		Required: []string{"id", "name"},
	}

	classSet := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":          {Type: "string", Format: "uuid"},
			"name":        {Type: "string"},
			"description": {Type: "string"},
			"classes":     {Type: "array", Items: openapi.SchemaRef("Class")},
			"class_count": {Type: "integer"},
			"created_at":  {Type: "string", Format: "date-time"},
			"updated_at":  {Type: "string", Format: "date-time"},
		},
	}

	candidate := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"class":      openapi.SchemaRef("Class"),
			"similarity": float("Cosine similarity score"),
			"rerank":     float("Model rerank score, present when reranking ran"),
			"attribute":  float("Attribute validation score, present when validation ran"),
			"effective":  float("Final score after all enabled stages"),
			"reasoning":  {Type: "string"},
		},
	}

	evaluation := &openapi.Schema{
		Type:        "object",
		Description: "Rule evaluation tree mirroring the attribute rule's structure.",
		Properties: map[string]*openapi.Schema{
			"type":      {Type: "string", Enum: []any{"condition", "and", "or"}},
			"satisfied": {Type: "boolean", Description: "Null when the node errored"},
			"condition": {Type: "string"},
			"children":  {Type: "array", Items: openapi.SchemaRef("Evaluation")},
			"skipped":   {Type: "boolean"},
			"error":     {Type: "string"},
		},
	}

	result := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"run_id":              {Type: "string", Format: "uuid"},
			"predicted":           openapi.SchemaRef("Class"),
			"primary":             openapi.SchemaRef("Candidate"),
			"alternatives":        {Type: "array", Items: openapi.SchemaRef("Candidate")},
			"evaluation":          openapi.SchemaRef("Evaluation"),
			"reranked":            {Type: "boolean"},
			"attribute_validated": {Type: "boolean"},
			"processing_time_ms":  float("Wall-clock pipeline duration"),
		},
	}

	run := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":                  {Type: "string", Format: "uuid"},
			"class_set_id":        {Type: "string", Format: "uuid"},
			"class_set_name":      {Type: "string"},
			"stage":               {Type: "string", Enum: []any{"idle", "retrieving", "reranking", "validating", "done", "failed"}},
			"predicted":           {Type: "string", Description: "Predicted class ID"},
			"predicted_name":      {Type: "string"},
			"effective":           float("Winning candidate's effective score"),
			"similarity":          float("Winning candidate's similarity score"),
			"rerank":              float("Winning candidate's rerank score"),
			"attribute":           float("Winning candidate's attribute score"),
			"reranked":            {Type: "boolean"},
			"attribute_validated": {Type: "boolean"},
			"processing_time_ms":  float("Wall-clock pipeline duration"),
			"error":               {Type: "string", Description: "Failure detail for failed runs"},
			"result_key":          {Type: "string", Description: "Archive key of the full result payload"},
			"created_at":          {Type: "string", Format: "date-time"},
			"updated_at":          {Type: "string", Format: "date-time"},
		},
	}

	runDetail := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"run":    openapi.SchemaRef("Run"),
			"result": openapi.SchemaRef("ClassificationResult"),
		},
		Description: "Run fields are inlined alongside the archived result payload.",
	}

	return map[string]*openapi.Schema{
		"Class":     class,
		"Rule":      rule,
		"Condition": condition,
		"ClassSet":  classSet,
		"ImportClassSet": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"name":        {Type: "string"},
				"description": {Type: "string"},
				"classes":     {Type: "array", Items: openapi.SchemaRef("Class")},
			},
			Required: []string{"name", "classes"},
		},
		"ClassSetPage":         pageOf("ClassSet"),
		"Candidate":            candidate,
		"Evaluation":           evaluation,
		"ClassificationResult": result,
		"Run":                  run,
		"RunDetail":            runDetail,
		"RunPage":              pageOf("Run"),
		"ClassifyRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"class_set_id": {Type: "string", Format: "uuid"},
				"document":     {Type: "string", Description: "Document text to classify"},
				"options": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"use_reranking":            {Type: "boolean"},
						"reranking_model":          {Type: "string", Description: "Friendly model name from the model catalog"},
						"use_attribute_validation": {Type: "boolean"},
						"top_k_candidates":         {Type: "integer", Default: 5},
					},
				},
			},
			Required: []string{"class_set_id", "document"},
		},
		"ValidateRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"class_set_id": {Type: "string", Format: "uuid"},
				"class_id":     {Type: "string"},
				"document":     {Type: "string"},
			},
			Required: []string{"class_set_id", "class_id", "document"},
		},
		"ValidationResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"class_id":   {Type: "string"},
				"satisfied":  {Type: "boolean"},
				"evaluation": openapi.SchemaRef("Evaluation"),
			},
		},
		"ModelList": {
			Type: "array",
			Items: &openapi.Schema{
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"provider": {Type: "string"},
					"name":     {Type: "string", Description: "Friendly name accepted in reranking_model"},
					"model_id": {Type: "string", Description: "Vendor model identifier"},
				},
			},
		},
		"BlobInfo": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"key":            {Type: "string"},
				"content_type":   {Type: "string"},
				"content_length": {Type: "integer"},
				"last_modified":  {Type: "string", Format: "date-time"},
			},
		},
		"BlobList": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"items":       {Type: "array", Items: openapi.SchemaRef("BlobInfo")},
				"next_marker": {Type: "string", Description: "Pass as marker to fetch the next page"},
			},
		},
	}
}

func pageOf(schemaName string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef(schemaName)},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}
