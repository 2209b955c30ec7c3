package fetch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wenfp108/vibe-scout/internal/forum"
)

// Upstream payloads come in two shapes: a mapping whose "data" field holds
// an ordered "children" sequence, or (for comment threads) a two-element
// sequence whose second element holds the comment children. Both are
// handled here; anything else is a malformed payload.

type envelope struct {
	Data *struct {
		Children []child `json:"children"`
	} `json:"data"`
}

type child struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postPayload struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       float64 `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments float64 `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Selftext    string  `json:"selftext"`
}

type commentPayload struct {
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	Score      float64 `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	ParentID   string  `json:"parent_id"`
	Depth      float64 `json:"depth"`
	Gilded     float64 `json:"gilded"`
}

func decodeListing(body []byte) ([]forum.Post, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("listing payload: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("listing payload missing data field")
	}

	posts := make([]forum.Post, 0, len(env.Data.Children))
	for _, c := range env.Data.Children {
		var p postPayload
		if err := json.Unmarshal(c.Data, &p); err != nil {
			// A single bad record is skipped, not fatal.
			continue
		}
		if p.Title == "" {
			continue
		}
		posts = append(posts, forum.Post{
			ID:          p.ID,
			Title:       p.Title,
			URL:         p.URL,
			Score:       int(p.Score),
			UpvoteRatio: p.UpvoteRatio,
			NumComments: int(p.NumComments),
			CreatedUTC:  p.CreatedUTC,
			Selftext:    p.Selftext,
		})
	}
	return posts, nil
}

func decodeComments(body []byte) ([]forum.Comment, error) {
	// Two-element sequence shape: element 0 is the post, element 1 holds
	// the comment children.
	var pair []envelope
	if err := json.Unmarshal(body, &pair); err == nil {
		if len(pair) < 2 || pair[1].Data == nil {
			return nil, fmt.Errorf("comment sequence missing children element")
		}
		return commentsFromChildren(pair[1].Data.Children), nil
	}

	// Mapping shape.
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("comment payload: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("comment payload missing data field")
	}
	return commentsFromChildren(env.Data.Children), nil
}

func commentsFromChildren(children []child) []forum.Comment {
	comments := make([]forum.Comment, 0, len(children))
	for _, c := range children {
		// "more" stubs and other non-comment kinds carry no body.
		if c.Kind != "" && c.Kind != "t1" {
			continue
		}
		var p commentPayload
		if err := json.Unmarshal(c.Data, &p); err != nil {
			continue
		}
		if p.Body == "" {
			continue
		}
		comments = append(comments, forum.Comment{
			Body:       p.Body,
			Author:     p.Author,
			Score:      int(p.Score),
			CreatedUTC: p.CreatedUTC,
			IsTopLevel: strings.HasPrefix(p.ParentID, "t3_"),
			ParentID:   p.ParentID,
			Depth:      int(p.Depth),
			Gilded:     int(p.Gilded),
		})
	}
	return comments
}
