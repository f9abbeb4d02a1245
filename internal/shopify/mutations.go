package shopify

// FileCreateMutation registers a remote file from a source URL. The returned
// file ID is not immediately resolvable to a URL; callers must poll.
const FileCreateMutation = `
mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files {
      id
    }
    userErrors {
      field
      message
    }
  }
}
`

// FileDeleteMutation deletes previously registered files.
const FileDeleteMutation = `
mutation fileDelete($input: [ID!]!) {
  fileDelete(fileIds: $input) {
    deletedFileIds
    userErrors {
      field
      message
    }
  }
}
`

// MetafieldsSetMutation upserts a single metafield on its owner.
const MetafieldsSetMutation = `
mutation SetProductMetafield($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields {
      id
      namespace
      key
      value
    }
    userErrors {
      field
      message
    }
  }
}
`
