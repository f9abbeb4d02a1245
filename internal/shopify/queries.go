package shopify

// VariantQuery fetches one variant plus its pdf_link metafield.
const VariantQuery = `
query ProductVariantMetafield($namespace: String!, $key: String!, $ownerId: ID!) {
  productVariant(id: $ownerId) {
    id
    title
    sku
    pdfLink: metafield(namespace: $namespace, key: $key) {
      value
    }
  }
}
`

// ProductImageQuery fetches the first product image edge.
const ProductImageQuery = `
query GetProductImageUrl($productId: ID!) {
  product(id: $productId) {
    images(first: 1) {
      edges {
        node {
          url
        }
      }
    }
  }
}
`

// ProductMetafieldQuery fetches one metafield of a product by namespace/key.
const ProductMetafieldQuery = `
query ProductMetafield($productId: ID!, $namespace: String!, $key: String!) {
  product(id: $productId) {
    metafield(namespace: $namespace, key: $key) {
      id
      value
      type
    }
  }
}
`

// MetaobjectQuery fetches a metaobject's fields.
const MetaobjectQuery = `
query Metaobject($id: ID!) {
  metaobject(id: $id) {
    displayName
    fields {
      key
      type
      value
    }
  }
}
`

// MediaImageQuery resolves a MediaImage node to its image URL.
const MediaImageQuery = `
query MediaImage($id: ID!) {
  node(id: $id) {
    id
    ... on MediaImage {
      image {
        url
      }
    }
  }
}
`

// FileURLQuery resolves a GenericFile node to its direct URL.
const FileURLQuery = `
query GetFileUrl($fileId: ID!) {
  node(id: $fileId) {
    id
    ... on GenericFile {
      url
    }
  }
}
`
