package redisstore

import "github.com/redis/go-redis/v9"

const (
	swapStatusMissing  int64 = -1
	swapStatusMismatch int64 = 0
	swapStatusSwapped  int64 = 1
)

// KEYS[1] principal hash; ARGV[1] current, ARGV[2] next, ARGV[3] expiry unix.
const swapRefreshScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local cur = redis.call("HGET", KEYS[1], "refresh_token")
if not cur or cur == "" or cur ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_token", ARGV[2], "refresh_expires_at", ARGV[3])
return 1
`

// KEYS[1] principal hash; ARGV[1] token, ARGV[2] expiry unix.
const setRefreshScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_token", ARGV[1], "refresh_expires_at", ARGV[2])
return 1
`

// KEYS[1] principal hash; ARGV[1] field, ARGV[2] value.
const setFieldIfExistsScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`

// KEYS[1] identifier index, KEYS[2] id sequence; ARGV[1] principal key prefix,
// ARGV[2] identifier, ARGV[3] password hash, ARGV[4] active flag.
const createPrincipalScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
local id = tostring(redis.call("INCR", KEYS[2]))
redis.call("HSET", ARGV[1] .. id,
  "identifier", ARGV[2],
  "password_hash", ARGV[3],
  "active", ARGV[4],
  "refresh_token", "",
  "refresh_expires_at", "0")
redis.call("SET", KEYS[1], id)
return tonumber(id)
`

// KEYS[1] principal hash, KEYS[2] grants hash; ARGV[1] module, ARGV[2] mask.
const upsertGrantScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
return 1
`

// KEYS[1] principal hash, KEYS[2] grants hash; ARGV[1] module, ARGV[2] set mask,
// ARGV[3] clear mask. Returns the new mask, -1 for a missing principal, -2 for a corrupt row.
const modifyGrantScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local cur = 0
local raw = redis.call("HGET", KEYS[2], ARGV[1])
if raw then
  cur = tonumber(raw)
  if not cur or cur < 0 or cur > 15 or cur % 1 ~= 0 then
    return -2
  end
end
local set = tonumber(ARGV[2])
local clear = tonumber(ARGV[3])
local out = 0
local b = 1
for _ = 1, 4 do
  local has = math.floor(cur / b) % 2 == 1 or math.floor(set / b) % 2 == 1
  if has and math.floor(clear / b) % 2 == 0 then
    out = out + b
  end
  b = b * 2
end
redis.call("HSET", KEYS[2], ARGV[1], tostring(out))
return out
`

var (
	swapRefreshLua     = redis.NewScript(swapRefreshScript)
	setRefreshLua      = redis.NewScript(setRefreshScript)
	setFieldLua        = redis.NewScript(setFieldIfExistsScript)
	createPrincipalLua = redis.NewScript(createPrincipalScript)
	upsertGrantLua     = redis.NewScript(upsertGrantScript)
	modifyGrantLua     = redis.NewScript(modifyGrantScript)
)
