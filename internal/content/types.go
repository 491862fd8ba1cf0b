package content

import "github.com/commonshub/commonshub-web/internal/schema"

// Typed document structs for the registered content files. Each struct has a
// matching descriptor below; LoadAs pairs them so consumers get a typed
// document that has already passed shape checking.

// Site is the top-level site metadata document (site.json).
type Site struct {
	Name        string `json:"name"`
	Tagline     string `json:"tagline,omitempty"`
	Description string `json:"description"`
	BaseURL     string `json:"baseUrl"`
	ContactEmail string `json:"contactEmail,omitempty"`
}

// Event is one entry in events.json.
type Event struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Date      string   `json:"date"`
	City      string   `json:"city,omitempty"`
	Venue     string   `json:"venue,omitempty"`
	URL       string   `json:"url,omitempty"`
	Presenters []string `json:"presenters,omitempty"`
}

// City is one chapter entry in cities.json.
type City struct {
	Slug      string  `json:"slug"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Active    bool    `json:"active"`
}

// Presenter is one entry in presenters.json.
type Presenter struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Presentation is one entry in presentations.json.
type Presentation struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Presenter string   `json:"presenter"`
	Date      string   `json:"date"`
	SlidesURL string   `json:"slidesUrl,omitempty"`
	VideoURL  string   `json:"videoUrl,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// CourseSection is one body section of a course document.
type CourseSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Course is one entry in courses.json.
type Course struct {
	Slug     string          `json:"slug"`
	Title    string          `json:"title"`
	Level    string          `json:"level"`
	Summary  string          `json:"summary"`
	Sections []CourseSection `json:"sections"`
}

// FAQEntry is one question/answer pair in faq.json.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Resource is one entry in resources.json.
type Resource struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	URL   string `json:"url"`
	Notes string `json:"notes,omitempty"`
}

// Contributor is one entry in contributors.json.
type Contributor struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Tag is one entry in tags.json.
type Tag struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// List document wrappers. Every collection file is an object with a single
// items array so the root kind stays stable as fields are added.

type EventsDoc struct {
	Items []Event `json:"items"`
}

type CitiesDoc struct {
	Items []City `json:"items"`
}

type PresentersDoc struct {
	Items []Presenter `json:"items"`
}

type PresentationsDoc struct {
	Items []Presentation `json:"items"`
}

type CoursesDoc struct {
	Items []Course `json:"items"`
}

type FAQDoc struct {
	Items []FAQEntry `json:"items"`
}

type ResourcesDoc struct {
	Items []Resource `json:"items"`
}

type ContributorsDoc struct {
	Items []Contributor `json:"items"`
}

type TagsDoc struct {
	Items []Tag `json:"items"`
}

// Descriptors for the registered documents. Filenames and shapes are fixed
// for the process lifetime.

func SiteDescriptor() *schema.Descriptor {
	return schema.Object(
		schema.Req("name", schema.StringMin(1)),
		schema.Opt("tagline", schema.String()),
		schema.Req("description", schema.StringMin(1)),
		schema.Req("baseUrl", schema.StringMin(1)),
		schema.Opt("contactEmail", schema.String()),
	)
}

func EventsDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("id", schema.StringMin(1)),
		schema.Req("title", schema.StringMin(1)),
		schema.Req("date", schema.StringMin(1)),
		schema.Opt("city", schema.String()),
		schema.Opt("venue", schema.String()),
		schema.Opt("url", schema.String()),
		schema.Opt("presenters", schema.Array(schema.String())),
	))
}

func CitiesDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("slug", schema.StringMin(1)),
		schema.Req("name", schema.StringMin(1)),
		schema.Req("country", schema.StringMin(1)),
		schema.Req("latitude", schema.NumberRange(-90, 90)),
		schema.Req("longitude", schema.NumberRange(-180, 180)),
		schema.Req("active", schema.Bool()),
	))
}

func PresentersDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("slug", schema.StringMin(1)),
		schema.Req("name", schema.StringMin(1)),
		schema.Opt("bio", schema.String()),
		schema.Opt("url", schema.String()),
	))
}

func PresentationsDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("slug", schema.StringMin(1)),
		schema.Req("title", schema.StringMin(1)),
		schema.Req("presenter", schema.StringMin(1)),
		schema.Req("date", schema.StringMin(1)),
		schema.Opt("slidesUrl", schema.String()),
		schema.Opt("videoUrl", schema.String()),
		schema.Opt("tags", schema.Array(schema.String())),
	))
}

func CoursesDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("slug", schema.StringMin(1)),
		schema.Req("title", schema.StringMin(1)),
		schema.Req("level", schema.Enum("beginner", "intermediate", "advanced")),
		schema.Req("summary", schema.StringMin(1)),
		schema.Req("sections", schema.Array(schema.Object(
			schema.Req("title", schema.StringMin(1)),
			schema.Req("body", schema.StringMin(1)),
		))),
	))
}

func FAQDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("question", schema.StringMin(1)),
		schema.Req("answer", schema.StringMin(1)),
	))
}

func ResourcesDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("title", schema.StringMin(1)),
		schema.Req("kind", schema.Enum("article", "video", "book", "tool")),
		schema.Req("url", schema.StringMin(1)),
		schema.Opt("notes", schema.String()),
	))
}

func ContributorsDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("name", schema.StringMin(1)),
		schema.Opt("role", schema.String()),
		schema.Opt("url", schema.String()),
	))
}

func TagsDescriptor() *schema.Descriptor {
	return items(schema.Object(
		schema.Req("slug", schema.StringMin(1)),
		schema.Req("label", schema.StringMin(1)),
	))
}

func items(elem *schema.Descriptor) *schema.Descriptor {
	return schema.Object(schema.Req("items", schema.Array(elem)))
}

// Default returns the registry of the site's content documents.
func Default() *Registry {
	r := NewRegistry()
	r.Register("site.json", SiteDescriptor())
	r.Register("events.json", EventsDescriptor())
	r.Register("cities.json", CitiesDescriptor())
	r.Register("presenters.json", PresentersDescriptor())
	r.Register("presentations.json", PresentationsDescriptor())
	r.Register("courses.json", CoursesDescriptor())
	r.Register("faq.json", FAQDescriptor())
	r.Register("resources.json", ResourcesDescriptor())
	r.Register("contributors.json", ContributorsDescriptor())
	r.Register("tags.json", TagsDescriptor())
	return r
}
