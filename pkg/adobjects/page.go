package adobjects

import (
	"net/http"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
)

// Page fields.
const (
	PageFieldAbout                    = "about"
	PageFieldAccessToken              = "access_token"
	PageFieldAttire                   = "attire"
	PageFieldCategory                 = "category"
	PageFieldCategoryList             = "category_list"
	PageFieldCheckins                 = "checkins"
	PageFieldCover                    = "cover"
	PageFieldDescription              = "description"
	PageFieldEmails                   = "emails"
	PageFieldEngagement               = "engagement"
	PageFieldFanCount                 = "fan_count"
	PageFieldGlobalBrandPageName      = "global_brand_page_name"
	PageFieldHours                    = "hours"
	PageFieldID                       = "id"
	PageFieldInstagramBusinessAccount = "instagram_business_account"
	PageFieldIsPublished              = "is_published"
	PageFieldIsVerified               = "is_verified"
	PageFieldLink                     = "link"
	PageFieldLocation                 = "location"
	PageFieldName                     = "name"
	PageFieldNewLikeCount             = "new_like_count"
	PageFieldOverallStarRating        = "overall_star_rating"
	PageFieldParking                  = "parking"
	PageFieldPhone                    = "phone"
	PageFieldPriceRange               = "price_range"
	PageFieldRatingCount              = "rating_count"
	PageFieldSingleLineAddress        = "single_line_address"
	PageFieldTalkingAboutCount        = "talking_about_count"
	PageFieldUnreadMessageCount       = "unread_message_count"
	PageFieldUsername                 = "username"
	PageFieldVerificationStatus       = "verification_status"
	PageFieldWebsite                  = "website"
	PageFieldWereHereCount            = "were_here_count"
	PageFieldWhatsappNumber           = "whatsapp_number"
)

// Page enum tables.
var (
	PageAttire           = []string{"Casual", "Dressy", "Unspecified"}
	PageMessagingType    = []string{"MESSAGE_TAG", "RESPONSE", "UPDATE"}
	PageNotificationType = []string{"NO_PUSH", "REGULAR", "SILENT_PUSH"}
	PageSenderAction     = []string{"MARK_SEEN", "TYPING_OFF", "TYPING_ON"}
	PageSubscribedFields = []string{
		"affiliation", "attire", "awards", "bio", "birthday", "category",
		"checkins", "conversations", "description", "email", "feed", "founded",
		"general_info", "leadgen", "live_videos", "location", "messages",
		"messaging_postbacks", "mention", "name", "phone", "picture", "ratings",
		"website",
	}
	PagePostWith  = []string{"LOCATION"}
	PagePhotoType = []string{"profile", "tagged", "uploaded"}
)

// Insights enum tables.
var (
	InsightsDatePreset = []string{
		"data_maximum", "last_14d", "last_28d", "last_30d", "last_3d",
		"last_7d", "last_90d", "last_month", "last_quarter",
		"last_week_mon_sun", "last_week_sun_sat", "last_year", "maximum",
		"this_month", "this_quarter", "this_week_mon_today",
		"this_week_sun_today", "this_year", "today", "yesterday",
	}
	InsightsPeriod = []string{"day", "days_28", "lifetime", "month", "total_over_range", "week"}
)

// PageSchema describes a Page node.
var PageSchema = graph.Register(&graph.Schema{
	Name: "Page",
	FieldTypes: map[string]string{
		PageFieldAbout:                    "string",
		PageFieldAccessToken:              "string",
		PageFieldAttire:                   "string",
		PageFieldCategory:                 "string",
		PageFieldCategoryList:             "list<PageCategory>",
		PageFieldCheckins:                 "unsigned int",
		PageFieldCover:                    "CoverPhoto",
		PageFieldDescription:              "string",
		PageFieldEmails:                   "list<string>",
		PageFieldEngagement:               "Engagement",
		PageFieldFanCount:                 "unsigned int",
		PageFieldGlobalBrandPageName:      "string",
		PageFieldHours:                    "map<string, string>",
		PageFieldID:                       "string",
		PageFieldInstagramBusinessAccount: "IGUser",
		PageFieldIsPublished:              "bool",
		PageFieldIsVerified:               "bool",
		PageFieldLink:                     "string",
		PageFieldLocation:                 "Location",
		PageFieldName:                     "string",
		PageFieldNewLikeCount:             "unsigned int",
		PageFieldOverallStarRating:        "float",
		PageFieldParking:                  "PageParking",
		PageFieldPhone:                    "string",
		PageFieldPriceRange:               "string",
		PageFieldRatingCount:              "unsigned int",
		PageFieldSingleLineAddress:        "string",
		PageFieldTalkingAboutCount:        "unsigned int",
		PageFieldUnreadMessageCount:       "unsigned int",
		PageFieldUsername:                 "string",
		PageFieldVerificationStatus:       "string",
		PageFieldWebsite:                  "string",
		PageFieldWereHereCount:            "unsigned int",
		PageFieldWhatsappNumber:           "string",
	},
	Enums: map[string][]string{
		"attire_enum": PageAttire,
	},
	DefaultReadFields: []string{PageFieldID, PageFieldName},
	Node:              true,
})

var postFilters = map[string]string{
	"include_hidden": "bool",
	"show_expired":   "bool",
	"with":           "with_enum",
}

var pageCalls = struct {
	read, update                                  call
	feed, posts, photos, createPhoto, insights    call
	roles, blocked, block, unblock                call
	ratings, productCatalogs, sendMessage         call
	subscribedApps, subscribeApp, unsubscribeApps call
}{
	read: call{
		method: http.MethodGet,
		types:  map[string]string{"account_linking_token": "string"},
		reuse:  true,
	},
	update: call{
		method: http.MethodPost,
		types: map[string]string{
			"about":                         "string",
			"accept_crossposting_handshake": "list<map>",
			"attire":                        "attire_enum",
			"category_list":                 "list<string>",
			"contact_address":               "Object",
			"cover":                         "string",
			"description":                   "string",
			"emails":                        "list<string>",
			"focus_x":                       "float",
			"focus_y":                       "float",
			"hours":                         "map",
			"is_always_open":                "bool",
			"is_published":                  "bool",
			"location":                      "Object",
			"offset_x":                      "int",
			"parking":                       "map",
			"phone":                         "string",
			"website":                       "string",
			"zoom_scale_x":                  "float",
		},
		enums: map[string][]string{"attire_enum": PageAttire},
		reuse: true,
	},
	feed: call{
		method:   http.MethodGet,
		endpoint: "feed",
		target:   PagePostSchema,
		types:    postFilters,
		enums:    map[string][]string{"with_enum": PagePostWith},
		edge:     true,
	},
	posts: call{
		method:   http.MethodGet,
		endpoint: "posts",
		target:   PagePostSchema,
		types:    merge(postFilters, map[string]string{"q": "string"}),
		enums:    map[string][]string{"with_enum": PagePostWith},
		edge:     true,
	},
	photos: call{
		method:   http.MethodGet,
		endpoint: "photos",
		target:   PhotoSchema,
		types: map[string]string{
			"biz_tag_id":  "unsigned int",
			"business_id": "string",
			"type":        "type_enum",
		},
		enums: map[string][]string{"type_enum": PagePhotoType},
		edge:  true,
	},
	createPhoto: call{
		method:   http.MethodPost,
		endpoint: "photos",
		target:   PhotoSchema,
		types: map[string]string{
			"backdated_time":         "datetime",
			"caption":                "string",
			"feed_targeting":         "Object",
			"message":                "string",
			"name":                   "string",
			"no_story":               "bool",
			"place":                  "Object",
			"published":              "bool",
			"scheduled_publish_time": "unsigned int",
			"tags":                   "list<Object>",
			"targeting":              "Object",
			"temporary":              "bool",
			"url":                    "string",
		},
		edge:   true,
		upload: true,
	},
	insights: call{
		method:   http.MethodGet,
		endpoint: "insights",
		target:   InsightsResultSchema,
		types: map[string]string{
			"date_preset":                   "date_preset_enum",
			"metric":                        "list<Object>",
			"period":                        "period_enum",
			"show_description_from_api_doc": "bool",
			"since":                         "datetime",
			"until":                         "datetime",
		},
		enums: map[string][]string{
			"date_preset_enum": InsightsDatePreset,
			"period_enum":      InsightsPeriod,
		},
		edge: true,
	},
	roles: call{
		method:   http.MethodGet,
		endpoint: "roles",
		target:   UserSchema,
		types: map[string]string{
			"include_deactivated": "bool",
			"uid":                 "Object",
		},
		edge: true,
	},
	blocked: call{
		method:   http.MethodGet,
		endpoint: "blocked",
		target:   ProfileSchema,
		types:    map[string]string{"uid": "int", "user": "int"},
		edge:     true,
	},
	block: call{
		method:   http.MethodPost,
		endpoint: "blocked",
		types: map[string]string{
			"asid": "list",
			"uid":  "list<string>",
			"user": "list<string>",
		},
		edge: true,
	},
	unblock: call{
		method:   http.MethodDelete,
		endpoint: "blocked",
		types:    map[string]string{"asid": "int", "uid": "int", "user": "int"},
		edge:     true,
	},
	ratings: call{
		method:   http.MethodGet,
		endpoint: "ratings",
		target:   RecommendationSchema,
		edge:     true,
	},
	productCatalogs: call{
		method:   http.MethodGet,
		endpoint: "product_catalogs",
		target:   ProductCatalogSchema,
		edge:     true,
	},
	sendMessage: call{
		method:   http.MethodPost,
		endpoint: "messages",
		target:   PageSchema,
		types: map[string]string{
			"message":           "Object",
			"messaging_type":    "messaging_type_enum",
			"notification_type": "notification_type_enum",
			"persona_id":        "string",
			"recipient":         "Object",
			"sender_action":     "sender_action_enum",
			"tag":               "Object",
		},
		enums: map[string][]string{
			"messaging_type_enum":    PageMessagingType,
			"notification_type_enum": PageNotificationType,
			"sender_action_enum":     PageSenderAction,
		},
		edge: true,
	},
	subscribedApps: call{
		method:   http.MethodGet,
		endpoint: "subscribed_apps",
		target:   ApplicationSchema,
		edge:     true,
	},
	subscribeApp: call{
		method:   http.MethodPost,
		endpoint: "subscribed_apps",
		target:   PageSchema,
		types:    map[string]string{"subscribed_fields": "list<subscribed_fields_enum>"},
		enums:    map[string][]string{"subscribed_fields_enum": PageSubscribedFields},
		edge:     true,
	},
	unsubscribeApps: call{
		method:   http.MethodDelete,
		endpoint: "subscribed_apps",
		edge:     true,
	},
}

// Page is a business page.
type Page struct {
	*graph.Object
}

// NewPage creates a page bound to api.
func NewPage(id string, api graph.API) *Page {
	return &Page{Object: graph.NewObject(PageSchema, id, "", api)}
}

// Read loads the page's fields into p.
func (p *Page) Read(fields []string, params client.Params) *graph.Request {
	return pageCalls.read.build(p.Object, fields, params)
}

// Update sends params as changes to the page and loads the response into p.
func (p *Page) Update(params client.Params) *graph.Request {
	return pageCalls.update.build(p.Object, nil, params)
}

// Feed reads the page feed.
func (p *Page) Feed(fields []string, params client.Params) *graph.Request {
	return pageCalls.feed.build(p.Object, fields, params)
}

// Posts reads posts published by the page.
func (p *Page) Posts(fields []string, params client.Params) *graph.Request {
	return pageCalls.posts.build(p.Object, fields, params)
}

func (p *Page) Photos(fields []string, params client.Params) *graph.Request {
	return pageCalls.photos.build(p.Object, fields, params)
}

// CreatePhoto publishes a photo. Attach the image with AddFile or pass a
// "url" param.
func (p *Page) CreatePhoto(params client.Params) *graph.Request {
	return pageCalls.createPhoto.build(p.Object, nil, params)
}

func (p *Page) Insights(fields []string, params client.Params) *graph.Request {
	return pageCalls.insights.build(p.Object, fields, params)
}

func (p *Page) Roles(fields []string, params client.Params) *graph.Request {
	return pageCalls.roles.build(p.Object, fields, params)
}

// Blocked lists profiles blocked from the page.
func (p *Page) Blocked(fields []string, params client.Params) *graph.Request {
	return pageCalls.blocked.build(p.Object, fields, params)
}

// Block blocks the users named by the "uid", "user" or "asid" params.
func (p *Page) Block(params client.Params) *graph.Request {
	return pageCalls.block.build(p.Object, nil, params)
}

func (p *Page) Unblock(params client.Params) *graph.Request {
	return pageCalls.unblock.build(p.Object, nil, params)
}

func (p *Page) Ratings(fields []string, params client.Params) *graph.Request {
	return pageCalls.ratings.build(p.Object, fields, params)
}

func (p *Page) ProductCatalogs(fields []string, params client.Params) *graph.Request {
	return pageCalls.productCatalogs.build(p.Object, fields, params)
}

// SendMessage sends a message or sender action to a recipient.
func (p *Page) SendMessage(params client.Params) *graph.Request {
	return pageCalls.sendMessage.build(p.Object, nil, params)
}

func (p *Page) SubscribedApps(fields []string, params client.Params) *graph.Request {
	return pageCalls.subscribedApps.build(p.Object, fields, params)
}

// SubscribeApp subscribes the calling app to the page's webhooks.
func (p *Page) SubscribeApp(params client.Params) *graph.Request {
	return pageCalls.subscribeApp.build(p.Object, nil, params)
}

func (p *Page) UnsubscribeApps(params client.Params) *graph.Request {
	return pageCalls.unsubscribeApps.build(p.Object, nil, params)
}

// merge returns the union of the given type tables.
func merge(tables ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}
