package domain

// ObjectTypeFile is the tag object type for files.
const ObjectTypeFile = "File"

// TagRef names a tag to attach or detach.
type TagRef struct {
	Name   string `json:"name"`
	Upsert *bool  `json:"upsert,omitempty"`
}

// Tag is a label attached to an object.
type Tag struct {
	Name string `json:"name"`
}

// TagObjectRequest attaches or detaches tags.
type TagObjectRequest struct {
	Tags       []TagRef `json:"tags"`
	ObjectType string   `json:"objectType"`
	ObjectID   string   `json:"objectId"`
}

// ListTagsRequest lists tags of an object.
type ListTagsRequest struct {
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
}

// ListTagsResponse carries the tags of an object.
type ListTagsResponse struct {
	Tags []Tag `json:"tags"`
}
