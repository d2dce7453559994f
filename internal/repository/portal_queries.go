package repository

// GraphQL documents sent to the portal. Field selections match what the
// normalizer and document enricher read.
const (
	loginMutation = `mutation SessionCreateMutation($input: Session__CreateInput!) {
  sessionCreate(input: $input) {
    error
    location
    user {
      id
      dbId
    }
  }
}`

	// AnnouncementsQuery lists one page of the viewer's announcements.
	AnnouncementsQuery = `query AnnouncementsListQuery($first: Int!, $after: String) {
  viewer {
    id
    announcements(first: $first, after: $after) {
      edges {
        cursor
        node {
          id
          dbId
          titleInfo { origin }
          messageInfo { origin }
          createdAt
          user { permittedName avatarUrl }
          documentsCount
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}`

	// AnnouncementDocumentsQuery lists the attachments of one announcement.
	AnnouncementDocumentsQuery = `query AnnouncementDocumentsQuery($id: ID!) {
  announcement(id: $id) {
    id
    documents {
      id
      fileFilename
      fileUrl
      contentType
    }
  }
}`
)
