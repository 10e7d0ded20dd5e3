package chatclient

import "context"

// conversationAPI is the slice of the store client the resolver needs.
type conversationAPI interface {
	ListConversations(ctx context.Context, userID int64, page, limit int) ([]Conversation, error)
	CreateConversation(ctx context.Context, userID int64, otherUserID *int64) (*Conversation, error)
}

// Resolution is the outcome of opening the conversation view: the full list
// and the conversation that should start selected. Active is nil only when
// the list is empty and creation was impossible.
type Resolution struct {
	Conversations []ConversationView
	Active        *ConversationView
}

// ResolveConversations loads the viewer's conversations and picks the one to
// open. With a non-zero targetID the conversation whose counterpart matches
// is preferred; otherwise the most recently active one is selected. When the
// viewer has no conversations at all, one is created on the spot, targeting
// targetID when given.
func ResolveConversations(ctx context.Context, api conversationAPI, viewer Identity, targetID int64) (*Resolution, error) {
	conversations, err := api.ListConversations(ctx, viewer.ID, 1, DefaultPageSize)
	if err != nil {
		return nil, err
	}

	if len(conversations) > 0 {
		views := annotateAll(viewer, conversations)
		active := &views[0]
		if targetID != 0 {
			for i := range views {
				if views[i].Counterpart.ID == targetID {
					active = &views[i]
					break
				}
			}
		}
		return &Resolution{Conversations: views, Active: active}, nil
	}

	var other *int64
	if targetID != 0 {
		other = &targetID
	}
	created, err := api.CreateConversation(ctx, viewer.ID, other)
	if err != nil {
		return nil, err
	}
	view := annotate(viewer, *created)
	views := []ConversationView{view}
	return &Resolution{Conversations: views, Active: &views[0]}, nil
}

// annotate derives the counterpart of a conversation from the viewer's side.
func annotate(viewer Identity, conversation Conversation) ConversationView {
	view := ConversationView{Conversation: conversation}
	switch {
	case conversation.User1ID == viewer.ID:
		if conversation.User2 != nil {
			view.Counterpart = *conversation.User2
		} else if conversation.User2ID != nil {
			view.Counterpart = Identity{ID: *conversation.User2ID}
		}
	default:
		if conversation.User1 != nil {
			view.Counterpart = *conversation.User1
		} else {
			view.Counterpart = Identity{ID: conversation.User1ID}
		}
	}
	return view
}

func annotateAll(viewer Identity, conversations []Conversation) []ConversationView {
	views := make([]ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		views = append(views, annotate(viewer, conversation))
	}
	return views
}
