package transfer

import (
	"encoding/json"
)

// FlexibleID decodes identifiers that the Graph APIs send either as JSON
// strings or as numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

// MetaShortLivedToken is returned by the Instagram and Threads code exchange.
// Newer Instagram responses wrap the token in a data array.
type MetaShortLivedToken struct {
	AccessToken string     `json:"access_token"`
	UserID      FlexibleID `json:"user_id"`
	Data        []struct {
		AccessToken string     `json:"access_token"`
		UserID      FlexibleID `json:"user_id"`
	} `json:"data"`
}

type MetaLongLivedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type MetaObjectID struct {
	ID     FlexibleID `json:"id"`
	PostID string     `json:"post_id"`
}

type MetaContainerStatus struct {
	ID         FlexibleID `json:"id"`
	StatusCode string     `json:"status_code"`
	Status     string     `json:"status"`
}

type InstagramUserInfo struct {
	ID             FlexibleID `json:"id"`
	UserID         FlexibleID `json:"user_id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	ProfilePicture string     `json:"profile_picture_url"`
}

type ThreadsUserInfo struct {
	ID             FlexibleID `json:"id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	ProfilePicture string     `json:"threads_profile_picture_url"`
}

type FacebookUser struct {
	ID      FlexibleID `json:"id"`
	Name    string     `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type FacebookPages struct {
	Data []struct {
		ID          FlexibleID `json:"id"`
		Name        string     `json:"name"`
		AccessToken string     `json:"access_token"`
	} `json:"data"`
}
