package lesson

// Resource is one entry of a lesson's embedded resource list.
type Resource struct {
	ContentID     string `json:"content_id"`
	ChannelID     string `json:"channel_id"`
	ContentNodeID string `json:"contentnode_id"`
}

// Lesson is a coach-built sequence of resources owned by a classroom and
// assigned to one or more collections.
type Lesson struct {
	ID           string
	Title        string
	CollectionID string // Classroom that owns the lesson
	IsActive     bool
	Resources    []Resource
}

// ContentIDs returns the content ids of every resource, in lesson order.
func (l *Lesson) ContentIDs() []string {
	ids := make([]string, 0, len(l.Resources))
	for _, r := range l.Resources {
		ids = append(ids, r.ContentID)
	}
	return ids
}

// ContentNodeFor returns the content node of the resource matching both ids.
// When several resources match, the last one wins.
func (l *Lesson) ContentNodeFor(contentID, channelID string) (string, bool) {
	var nodeID string
	found := false
	for _, r := range l.Resources {
		if r.ContentID == contentID && r.ChannelID == channelID {
			nodeID = r.ContentNodeID
			found = true
		}
	}
	return nodeID, found
}
