package repository

import "github.com/ericfisherdev/projectsync/migrations"

// Remote collections backing each repository.
const (
	collectionUsers         = migrations.Users
	collectionProjects      = migrations.Projects
	collectionTasks         = migrations.Tasks
	collectionComments      = migrations.Comments
	collectionFiles         = migrations.Files
	collectionNotifications = migrations.Notifications
	collectionChats         = migrations.Chats
	collectionMessages      = migrations.Messages
)

// Local cache tables, one per cache-through entity kind.
const (
	tableUsers         = "users"
	tableTasks         = "tasks"
	tableComments      = "comments"
	tableNotifications = "notifications"
)

// Entity names used in messages, logs and metric labels.
const (
	entityUser         = "User"
	entityProject      = "Project"
	entityTask         = "Task"
	entityComment      = "Comment"
	entityNotification = "Notification"
	entityChat         = "Chat"
	entityMessage      = "Message"
	entityFile         = "File"
)
