//go:build integration

package containers

// Schema is the DDL applied to integration-test databases. It mirrors the
// column layouts the postgres stores expect.
const Schema = `
CREATE TABLE attributes (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	slug        TEXT        NOT NULL,
	datatype    TEXT        NOT NULL,
	choices     TEXT[]      NOT NULL DEFAULT '{}',
	is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX attributes_slug_key ON attributes (lower(slug));

CREATE TABLE custom_fields (
	id           BIGSERIAL PRIMARY KEY,
	attribute_id BIGINT      NOT NULL REFERENCES attributes (id),
	description  TEXT        NOT NULL DEFAULT '',
	catalog_hint TEXT        NOT NULL DEFAULT '',
	is_active    BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE evidence_groups (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	alias       TEXT        NOT NULL UNIQUE,
	description TEXT        NOT NULL DEFAULT '',
	is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE evidence_stages (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	position    INTEGER     NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE evidence_statuses (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	position    INTEGER     NOT NULL,
	color       TEXT        NOT NULL DEFAULT '',
	description TEXT        NOT NULL DEFAULT '',
	stage_id    BIGINT      NOT NULL REFERENCES evidence_stages (id),
	group_id    BIGINT      NOT NULL REFERENCES evidence_groups (id),
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (stage_id, group_id, name)
);

CREATE TABLE quality_controls (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT        NOT NULL,
	is_active  BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE evidence_types (
	id                  BIGSERIAL PRIMARY KEY,
	name                TEXT        NOT NULL,
	alias               TEXT        NOT NULL UNIQUE,
	level               INTEGER     NOT NULL DEFAULT 0,
	parent_id           BIGINT      REFERENCES evidence_types (id),
	group_id            BIGINT      NOT NULL REFERENCES evidence_groups (id),
	attachment_required BOOLEAN     NOT NULL DEFAULT FALSE,
	signature_required  BOOLEAN     NOT NULL DEFAULT FALSE,
	auth_required       BOOLEAN     NOT NULL DEFAULT FALSE,
	is_active           BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE evidence_type_custom_fields (
	type_id         BIGINT      NOT NULL REFERENCES evidence_types (id),
	custom_field_id BIGINT      NOT NULL REFERENCES custom_fields (id),
	mandatory       BOOLEAN     NOT NULL DEFAULT FALSE,
	group_label     TEXT        NOT NULL DEFAULT 'General',
	is_active       BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (type_id, custom_field_id)
);

CREATE TABLE evidence_type_quality_controls (
	type_id            BIGINT      NOT NULL REFERENCES evidence_types (id),
	quality_control_id BIGINT      NOT NULL REFERENCES quality_controls (id),
	created_at         TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (type_id, quality_control_id)
);

CREATE TABLE users (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	email       TEXT        NOT NULL UNIQUE,
	division_id BIGINT      NOT NULL,
	is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE uploaded_files (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT        NOT NULL,
	content_type TEXT        NOT NULL DEFAULT '',
	size         BIGINT      NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE evidences (
	id                BIGSERIAL PRIMARY KEY,
	status_id         BIGINT      NOT NULL REFERENCES evidence_statuses (id),
	type_id           BIGINT      NOT NULL REFERENCES evidence_types (id),
	owner_id          BIGINT      NOT NULL REFERENCES users (id),
	parent_id         BIGINT      REFERENCES evidences (id),
	dirty             BOOLEAN     NOT NULL DEFAULT FALSE,
	pending_auth      BOOLEAN     NOT NULL DEFAULT FALSE,
	pending_signature BOOLEAN     NOT NULL DEFAULT FALSE,
	uploaded_file_id  BIGINT      REFERENCES uploaded_files (id),
	version           INTEGER     NOT NULL DEFAULT 1,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE evidence_values (
	evidence_id    BIGINT           NOT NULL REFERENCES evidences (id),
	attribute_id   BIGINT           NOT NULL REFERENCES attributes (id),
	attribute_slug TEXT             NOT NULL,
	datatype       TEXT             NOT NULL,
	value_text     TEXT,
	value_number   DOUBLE PRECISION,
	value_date     TIMESTAMPTZ,
	value_bool     BOOLEAN,
	updated_at     TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (evidence_id, attribute_id)
);

CREATE TABLE evidence_auths (
	id          BIGSERIAL PRIMARY KEY,
	evidence_id BIGINT      NOT NULL REFERENCES evidences (id),
	user_id     BIGINT      NOT NULL REFERENCES users (id),
	status      TEXT        NOT NULL,
	version     INTEGER     NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (evidence_id, user_id, version)
);

CREATE TABLE evidence_signatures (
	id          BIGSERIAL PRIMARY KEY,
	evidence_id BIGINT      NOT NULL REFERENCES evidences (id),
	user_id     BIGINT      NOT NULL REFERENCES users (id),
	status      TEXT        NOT NULL,
	version     INTEGER     NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (evidence_id, user_id, version)
);

CREATE TABLE evidence_findings (
	id                 BIGSERIAL PRIMARY KEY,
	evidence_id        BIGINT      NOT NULL REFERENCES evidences (id),
	quality_control_id BIGINT      NOT NULL REFERENCES quality_controls (id),
	status             TEXT        NOT NULL,
	comments           TEXT        NOT NULL DEFAULT '',
	version            INTEGER     NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	UNIQUE (evidence_id, quality_control_id, version)
);

CREATE TABLE evidence_comments (
	id          BIGSERIAL PRIMARY KEY,
	evidence_id BIGINT      NOT NULL REFERENCES evidences (id),
	user_id     BIGINT      NOT NULL REFERENCES users (id),
	text        TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE notifications (
	id          BIGSERIAL PRIMARY KEY,
	evidence_id BIGINT      NOT NULL REFERENCES evidences (id),
	user_id     BIGINT      NOT NULL REFERENCES users (id),
	content     TEXT        NOT NULL,
	opened      BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE catalog_entries (
	id          BIGSERIAL PRIMARY KEY,
	kind        TEXT        NOT NULL,
	name        TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	parent_id   BIGINT,
	level       INTEGER     NOT NULL DEFAULT 0,
	is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (kind, name)
);

CREATE TABLE audit_outbox (
	id           TEXT        PRIMARY KEY,
	payload      BYTEA       NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);
`
