// Package repository implements the persistence layer on PostgreSQL.
package repository

const pgErrUniqueViolationCode = "23505"

const orderColumns = `id, order_number, customer_id, order_type, status,
						product_kind, product_id, lease_kind, lease_id,
						price, tax_percentage, due_date, comment,
						customer_first_name, customer_last_name, customer_email,
						customer_phone, customer_address, customer_zip_code, customer_city,
						payment_notification_sent, talpa_ecom_id, created_at`

const leaseColumns = `id, kind, customer_id, status, start_date, end_date, comment,
						application_id, berth_id, berth_width, harbor_id,
						place_id, section_id, area_id, is_unmarked, sticker_number,
						place_width, place_length, boat_width, boat_length,
						application_boat_width, application_boat_length,
						renew_automatically, created_at`
