package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PersonalInfo struct {
	Fullname   string `json:"fullname" bson:"fullname"`
	Email      string `json:"email" bson:"email"`
	Password   string `json:"-" bson:"password,omitempty"` // bcrypt hash, empty for Google accounts
	Username   string `json:"username" bson:"username"`
	Bio        string `json:"bio" bson:"bio"`
	ProfileImg string `json:"profile_img" bson:"profile_img"`
}

type SocialLinks struct {
	Youtube   string `json:"youtube" bson:"youtube"`
	Instagram string `json:"instagram" bson:"instagram"`
	Facebook  string `json:"facebook" bson:"facebook"`
	Twitter   string `json:"twitter" bson:"twitter"`
	Github    string `json:"github" bson:"github"`
	Website   string `json:"website" bson:"website"`
}

type AccountInfo struct {
	TotalPosts int `json:"total_posts" bson:"total_posts"`
	TotalReads int `json:"total_reads" bson:"total_reads"`
}

// User is stored in MongoDB next to the blogs it authors
type User struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	PersonalInfo PersonalInfo         `json:"personal_info" bson:"personal_info"`
	SocialLinks  SocialLinks          `json:"social_links" bson:"social_links"`
	AccountInfo  AccountInfo          `json:"account_info" bson:"account_info"`
	GoogleAuth   bool                 `json:"google_auth" bson:"google_auth"`
	FirebaseUID  string               `json:"-" bson:"firebase_uid,omitempty"`
	Blogs        []primitive.ObjectID `json:"-" bson:"blogs"`
	LikedBlogs   []primitive.ObjectID `json:"-" bson:"liked_blogs"`
	JoinedAt     time.Time            `json:"joinedAt" bson:"joinedAt"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// UserCompact is the public identity attached to blogs and comments
type UserCompact struct {
	ID         primitive.ObjectID `json:"id"`
	Username   string             `json:"username"`
	Fullname   string             `json:"fullname,omitempty"`
	ProfileImg string             `json:"profile_img"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:         u.ID,
		Username:   u.PersonalInfo.Username,
		Fullname:   u.PersonalInfo.Fullname,
		ProfileImg: u.PersonalInfo.ProfileImg,
	}
}

// SignupRequest defines the request body for local signup
type SignupRequest struct {
	PersonalInfo struct {
		Fullname string `json:"fullname" validate:"required,min=3,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6,max=72"`
	} `json:"personal_info" validate:"required"`
}

// LoginRequest defines the request body for local login
type LoginRequest struct {
	PersonalInfo struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	} `json:"personal_info" validate:"required"`
}

// GoogleLoginRequest carries a Firebase ID token obtained by the client
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// UpdateUserRequest is a partial update; nil fields are left untouched
type UpdateUserRequest struct {
	PersonalInfo *struct {
		Fullname   *string `json:"fullname,omitempty" validate:"omitempty,min=3,max=100"`
		Username   *string `json:"username,omitempty" validate:"omitempty,min=3,max=50,alphanum"`
		Bio        *string `json:"bio,omitempty" validate:"omitempty,max=200"`
		ProfileImg *string `json:"profile_img,omitempty" validate:"omitempty,url"`
	} `json:"personal_info,omitempty"`
	SocialLinks *struct {
		Youtube   *string `json:"youtube,omitempty" validate:"omitempty,url"`
		Instagram *string `json:"instagram,omitempty" validate:"omitempty,url"`
		Facebook  *string `json:"facebook,omitempty" validate:"omitempty,url"`
		Twitter   *string `json:"twitter,omitempty" validate:"omitempty,url"`
		Github    *string `json:"github,omitempty" validate:"omitempty,url"`
		Website   *string `json:"website,omitempty" validate:"omitempty,url"`
	} `json:"social_links,omitempty"`
}

// AuthResult is returned by login and Google sign-in
type AuthResult struct {
	User  *User
	Token string
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"` // MongoDB ObjectID hex
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
