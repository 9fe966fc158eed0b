package search

// indexMapping is the properties index schema. The field names predate the
// master schema: area_original_value, area_unit_original, and
// duplicate_of_property_id spell their master-store counterparts differently.
const indexMapping = `{
  "mappings": {
    "properties": {
      "source_url": {"type": "keyword"},
      "source_name": {"type": "keyword"},
      "title": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword", "ignore_above": 256}}
      },
      "description": {"type": "text"},
      "images": {"type": "keyword"},
      "price_original_numeric": {"type": "float"},
      "price_original_text": {"type": "keyword"},
      "currency_original": {"type": "keyword"},
      "normalized_price_usd": {"type": "float"},
      "address_raw": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword", "ignore_above": 256}}
      },
      "location_text": {"type": "text"},
      "location_coordinates": {"type": "geo_point"},
      "bedrooms": {"type": "integer"},
      "bathrooms": {"type": "half_float"},
      "area_original_value": {"type": "float"},
      "area_unit_original": {"type": "keyword"},
      "normalized_area_sqft": {"type": "float"},
      "property_type": {
        "type": "keyword",
        "fields": {"keyword": {"type": "keyword"}}
      },
      "amenities": {"type": "keyword"},
      "date_posted": {"type": "date"},
      "scrape_timestamp": {"type": "date"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"},
      "status": {"type": "keyword"},
      "duplicate_of_property_id": {"type": "integer"}
    }
  }
}`
